package pipeline

import (
	"errors"
	"io"

	"golang.org/x/sys/unix"
)

// errNoData is returned by a ReadFunc when the wait timed out.
var errNoData = errors.New("pipeline: no data")

// ReadFunc reads from a transport descriptor, waiting at most timeoutMs.
// It returns errNoData on timeout and io.EOF when the writer hung up.
type ReadFunc func(fd int, p []byte, timeoutMs int) (int, error)

func readFD(fd int, p []byte, timeoutMs int) (int, error) {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, timeoutMs)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, errNoData
		}
		return 0, err
	}
	if n == 0 {
		return 0, errNoData
	}
	if fds[0].Revents&unix.POLLNVAL != 0 {
		return 0, unix.EBADF
	}
	r, err := unix.Read(fd, p)
	switch {
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
		return 0, errNoData
	case err != nil:
		return 0, err
	case r == 0:
		return 0, io.EOF
	}
	return r, nil
}

// ReleaseFD closes a transport descriptor handed over by the transport layer.
func ReleaseFD(fd int) error {
	if fd < 0 {
		return nil
	}
	return unix.Close(fd)
}
