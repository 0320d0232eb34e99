//go:build linux

package gps

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Rates NMEA receivers ship with. NavIC modules commonly default to 9600 or
// 115200 and can be raised to 921600 for 10 Hz output.
var unixBaud = map[int]uint32{
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
	460800: unix.B460800,
	921600: unix.B921600,
}

func baudToUnix(baud int) (uint32, error) {
	spd, ok := unixBaud[baud]
	if !ok {
		return 0, fmt.Errorf("gps: unsupported baud %d", baud)
	}
	return spd, nil
}

// makeRaw configures t for 8N1 at spd with no line discipline. The decoder
// needs CR and LF exactly as the receiver sent them, so no input translation.
// Reads return once a byte is available and otherwise wait at most 1s.
func makeRaw(t *unix.Termios, spd uint32) {
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CBAUD
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL | spd
	t.Ispeed = spd
	t.Ospeed = spd
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 10
}

// openSerial opens the receiver tty in raw mode.
func openSerial(path string, baud int) (io.ReadWriteCloser, error) {
	spd, err := baudToUnix(baud)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}

	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("gps: %s is not a tty: %w", path, err)
	}
	makeRaw(t, spd)
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("gps: configure %s: %w", path, err)
	}
	// Drop whatever queued up before the port was configured; it is usually a
	// partial sentence at the wrong speed.
	_ = unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIFLUSH)

	return os.NewFile(uintptr(fd), path), nil
}
