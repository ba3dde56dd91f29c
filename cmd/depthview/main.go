// depthview is an interactive viewer for a depth camera point cloud
// stream: it shows the latest captured cloud, optionally smooths it,
// and can persist frames to disk as numbered recording sessions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/depthkit/go-depthview/internal/config"
	"github.com/depthkit/go-depthview/internal/log"
	"github.com/depthkit/go-depthview/pkg/display"
	"github.com/depthkit/go-depthview/pkg/grabber"
	"github.com/depthkit/go-depthview/pkg/viewer"
	"github.com/depthkit/go-depthview/pkg/web"
)

// Exit codes. Recording failures get their own code so scripts can tell
// a lost recording from a missing device.
const (
	exitDevice    = 1
	exitRecording = 2
)

const keyHelp = `Keyboard commands (viewer window focused):
  t/T : increase or decrease depth confidence threshold
  k   : cycle temporal filtering mode
  w/W : increase or decrease temporal filtering window
  b   : toggle smoothing
  a/A : increase or decrease smoothing spatial sigma
  z/Z : increase or decrease smoothing range sigma
  s   : toggle recording to disk
  p   : save the last displayed cloud once`

func main() {
	var (
		list      = flag.Bool("list", false, "list available devices and exit")
		device    = flag.String("device", "", "device serial or #index (default: first available)")
		logLevel  = flag.String("log-level", config.LogLevel(), "log level: debug, info, warn, error")
		recordDir = flag.String("record-dir", config.RecordDir(), "root directory for recording sessions")
		webAddr   = flag.String("web", config.WebAddr(), "status server listen address (empty: disabled)")
		fps       = flag.Float64("fps", 30, "simulated capture rate")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n%s\n", keyHelp)
	}
	flag.Parse()

	log.Init(*logLevel)

	devices := openDevices(*fps)
	defer func() {
		for _, d := range devices {
			d.Close()
		}
	}()

	if *list {
		fmt.Println("Connected devices:")
		for i, d := range devices {
			fmt.Printf("  #%d  %s\n", i+1, d.DeviceID())
		}
		return
	}

	grab, err := selectDevice(devices, *device)
	if err != nil {
		log.Error("open device", "device", *device, "error", err)
		os.Exit(exitDevice)
	}
	log.Info("using device", "serial", grab.DeviceID())

	if err := os.MkdirAll(*recordDir, 0o755); err != nil {
		log.Error("record dir", "dir", *recordDir, "error", err)
		os.Exit(exitRecording)
	}

	win := display.NewWindow("depthview: " + grab.DeviceID())
	defer win.Close()

	v := viewer.New(grab, win,
		viewer.WithLogger(log.L()),
		viewer.WithRecordRoot(*recordDir),
		viewer.WithSaveDir(*recordDir),
	)

	if *webAddr != "" {
		srv := web.NewServer(*webAddr, v, log.With("component", "web"))
		v.SetStatusHook(srv.PublishStatus)
		srv.StartAsync()
		defer srv.Shutdown()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := v.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("viewer", "error", err)
		if errors.Is(err, viewer.ErrSessionDir) {
			os.Exit(exitRecording)
		}
		os.Exit(exitDevice)
	}
}

// openDevices creates the simulated device fleet. Serials are stable
// across runs so -list output can be used with -device.
func openDevices(fps float64) []*grabber.MockGrabber {
	n := config.MockCount()
	devices := make([]*grabber.MockGrabber, n)
	for i := range devices {
		devices[i] = grabber.NewMock(log.With("component", "grabber"),
			grabber.WithSerial(fmt.Sprintf("SIM-%04d", i+1)),
			grabber.WithFrameRate(fps),
		)
	}
	return devices
}

// selectDevice resolves a device id: empty for the first device, "#i"
// for the i-th (1-based), otherwise an exact serial match.
func selectDevice(devices []*grabber.MockGrabber, id string) (grabber.Grabber, error) {
	if len(devices) == 0 {
		return nil, grabber.ErrNoDevice
	}
	if id == "" {
		return devices[0], nil
	}
	if strings.HasPrefix(id, "#") {
		i, err := strconv.Atoi(id[1:])
		if err != nil || i < 1 || i > len(devices) {
			return nil, fmt.Errorf("%w: bad index %q", grabber.ErrNoDevice, id)
		}
		return devices[i-1], nil
	}
	for _, d := range devices {
		if d.DeviceID() == id {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: serial %q", grabber.ErrNoDevice, id)
}
