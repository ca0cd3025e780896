package eq

// FrequencyTable holds 1/24-octave preferred frequencies (ISO R80) from 16 Hz to 20 kHz.
// The wire format carries an index into this table.
var FrequencyTable = [...]float64{
	16, 16.5, 17, 17.5, 18, 18.5, 19, 19.5, 20, 20.6,
	21.2, 21.8, 22.4, 23, 23.6, 24.3, 25, 25.8, 26.5, 27.2,
	28, 29, 30, 30.7, 31.5, 32.5, 33.5, 34.5, 35.5, 36.5,
	37.5, 38.7, 40, 41.2, 42.5, 43.7, 45, 46.2, 47.5, 48.7,
	50, 51.5, 53, 54.5, 56, 58, 60, 61.5, 63, 65,
	67, 69, 71, 73, 75, 77.5, 80, 82.5, 85, 87.5,
	90, 92.5, 95, 97.5, 100, 103, 106, 109, 112, 115,
	118, 122, 125, 128, 132, 136, 140, 145, 150, 155,
	160, 165, 170, 175, 180, 185, 190, 195, 200, 206,
	212, 218, 224, 230, 236, 243, 250, 258, 265, 272,
	280, 290, 300, 307, 315, 325, 335, 345, 355, 365,
	375, 387, 400, 412, 425, 437, 450, 462, 475, 487,
	500, 515, 530, 545, 560, 580, 600, 615, 630, 650,
	670, 690, 710, 730, 750, 775, 800, 825, 850, 875,
	900, 925, 950, 975, 1000, 1030, 1060, 1090, 1120, 1150,
	1180, 1220, 1250, 1280, 1320, 1360, 1400, 1450, 1500, 1550,
	1600, 1650, 1700, 1750, 1800, 1850, 1900, 1950, 2000, 2060,
	2120, 2180, 2240, 2300, 2360, 2430, 2500, 2580, 2650, 2720,
	2800, 2900, 3000, 3070, 3150, 3250, 3350, 3450, 3550, 3650,
	3750, 3870, 4000, 4120, 4250, 4370, 4500, 4620, 4750, 4870,
	5000, 5150, 5300, 5450, 5600, 5800, 6000, 6150, 6300, 6500,
	6700, 6900, 7100, 7300, 7500, 7750, 8000, 8250, 8500, 8750,
	9000, 9250, 9500, 9750, 10000, 10300, 10600, 10900, 11200, 11500,
	11800, 12200, 12500, 12800, 13200, 13600, 14000, 14500, 15000, 15500,
	16000, 16500, 17000, 17500, 18000, 18500, 19000, 19500, 20000,
}

// QTable holds ISO R20 quality factors from 0.1 to 25.
var QTable = [...]float64{
	0.1, 0.112, 0.125, 0.14, 0.16, 0.18, 0.2, 0.224, 0.25, 0.28,
	0.315, 0.355, 0.4, 0.45, 0.5, 0.56, 0.63, 0.71, 0.8, 0.9,
	1, 1.12, 1.25, 1.4, 1.6, 1.8, 2, 2.24, 2.5, 2.8,
	3.15, 3.55, 4, 4.5, 5, 5.6, 6.3, 7.1, 8, 9,
	10, 11.2, 12.5, 14, 16, 18, 20, 22.4, 25,
}

// Default table positions used for freshly created filters.
const (
	DefaultFrequencyIndex = 144 // 1 kHz
	DefaultQIndex         = 17  // 0.71
)
