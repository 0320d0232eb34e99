//go:build linux

package gps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/sys/unix"
)

func TestBaudToUnix(t *testing.T) {
	for baud, want := range map[int]uint32{
		9600:   unix.B9600,
		115200: unix.B115200,
		921600: unix.B921600,
	} {
		got, err := baudToUnix(baud)
		if err != nil || got != want {
			t.Fatalf("baudToUnix(%d)=%#x,%v want %#x", baud, got, err, want)
		}
	}
	if _, err := baudToUnix(12345); err == nil {
		t.Fatalf("expected error for unsupported baud")
	}
}

func TestMakeRaw_KeepsLineEndings(t *testing.T) {
	tio := &unix.Termios{
		Iflag: unix.ICRNL | unix.IGNCR | unix.IXON,
		Oflag: unix.OPOST,
		Lflag: unix.ICANON | unix.ECHO,
		Cflag: unix.PARENB | unix.CS7 | unix.B4800,
	}
	makeRaw(tio, unix.B115200)

	if tio.Iflag&(unix.ICRNL|unix.IGNCR|unix.INLCR) != 0 {
		t.Fatalf("input CR/LF translation still enabled: iflag=%#x", tio.Iflag)
	}
	if tio.Lflag&unix.ICANON != 0 || tio.Oflag&unix.OPOST != 0 {
		t.Fatalf("not raw: lflag=%#x oflag=%#x", tio.Lflag, tio.Oflag)
	}
	if tio.Cflag&unix.CSIZE != unix.CS8 || tio.Cflag&unix.PARENB != 0 {
		t.Fatalf("want 8N1: cflag=%#x", tio.Cflag)
	}
	if tio.Cflag&unix.CBAUD != unix.B115200 || tio.Ispeed != unix.B115200 || tio.Ospeed != unix.B115200 {
		t.Fatalf("speed not applied: cflag=%#x ispeed=%#x", tio.Cflag, tio.Ispeed)
	}
	if tio.Cc[unix.VMIN] != 1 || tio.Cc[unix.VTIME] != 10 {
		t.Fatalf("vmin=%d vtime=%d", tio.Cc[unix.VMIN], tio.Cc[unix.VTIME])
	}
}

func TestOpenSerial_RejectsNonTTY(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(path, []byte("$GNRMC"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := openSerial(path, 9600)
	if err == nil || !strings.Contains(err.Error(), "not a tty") {
		t.Fatalf("err=%v", err)
	}
}
