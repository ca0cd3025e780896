package device

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// DefaultPCMPath is the procfs listing of ALSA PCM devices.
const DefaultPCMPath = "/proc/asound/pcm"

// ALSAEnumerator lists playback devices from an ALSA procfs PCM listing.
// The "default" PCM is always reported first.
type ALSAEnumerator struct {
	Path string
}

func (e ALSAEnumerator) OutputDevices() ([]Device, error) {
	path := e.Path
	if path == "" {
		path = DefaultPCMPath
	}
	f, err := os.Open(path)
	if err != nil {
		return []Device{{Name: "default", Class: ClassDefault}}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return parsePCM(f)
}

// parsePCM reads lines such as
//
//	00-01: ALC892 Digital : ALC892 Digital : playback 1
func parsePCM(r io.Reader) ([]Device, error) {
	devices := []Device{{Name: "default", Class: ClassDefault}}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Split(sc.Text(), ":")
		if len(fields) < 3 {
			continue
		}
		card, dev, ok := strings.Cut(strings.TrimSpace(fields[0]), "-")
		if !ok {
			continue
		}
		c, err1 := strconv.Atoi(card)
		d, err2 := strconv.Atoi(dev)
		if err1 != nil || err2 != nil {
			continue
		}
		playback := false
		for _, f := range fields[3:] {
			if strings.HasPrefix(strings.TrimSpace(f), "playback") {
				playback = true
			}
		}
		if !playback {
			continue
		}
		class := ClassOther
		if isDigital(fields[1]) || isDigital(fields[2]) {
			class = ClassDigital
		}
		devices = append(devices, Device{Name: fmt.Sprintf("hw:%d,%d", c, d), Class: class})
	}
	return devices, sc.Err()
}

func isDigital(name string) bool {
	name = strings.ToLower(name)
	for _, k := range []string{"iec958", "spdif", "s/pdif", "digital"} {
		if strings.Contains(name, k) {
			return true
		}
	}
	return false
}

// StaticEnumerator reports a fixed device list.
type StaticEnumerator []Device

func (s StaticEnumerator) OutputDevices() ([]Device, error) {
	return append([]Device(nil), s...), nil
}

// ParseClass maps a configuration name to a Class.
func ParseClass(name string) (Class, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "default":
		return ClassDefault, nil
	case "spdif", "digital":
		return ClassDigital, nil
	case "other", "":
		return ClassOther, nil
	default:
		return ClassOther, fmt.Errorf("unknown device class %q", name)
	}
}
