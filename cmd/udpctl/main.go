package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/udp-sockets/config"
	"github.com/wippyai/udp-sockets/dispatch"
	"github.com/wippyai/udp-sockets/socket"
)

const (
	listenHandle = 1
	sendHandle   = 2
)

type options struct {
	configFile  string
	listen      string
	send        string
	message     string
	logLevel    string
	metricsAddr string
	join        []string
	count       int
	interval    time.Duration
	broadcast   bool
	interactive bool
}

func main() {
	var o options
	flag.StringVarP(&o.configFile, "config", "c", "", "Path to YAML config file")
	flag.StringVarP(&o.listen, "listen", "l", "", "Bind a receiving socket to host:port and print datagrams")
	flag.StringSliceVarP(&o.join, "join", "j", nil, "Multicast groups to join on the listening socket")
	flag.StringVarP(&o.send, "send", "s", "", "Send datagrams to host:port")
	flag.StringVarP(&o.message, "message", "m", "ping", "Payload to send")
	flag.IntVarP(&o.count, "count", "n", 1, "Number of datagrams to send")
	flag.DurationVar(&o.interval, "interval", time.Second, "Delay between datagrams when count > 1")
	flag.BoolVarP(&o.broadcast, "broadcast", "b", false, "Enable SO_BROADCAST on the sending socket")
	flag.StringVar(&o.logLevel, "log-level", "", "Override logging.level from config")
	flag.StringVar(&o.metricsAddr, "metrics", "", "Serve Prometheus metrics on host:port (overrides config)")
	flag.BoolVarP(&o.interactive, "interactive", "i", false, "Interactive console")
	flag.Parse()

	if o.listen == "" && o.send == "" && !o.interactive {
		fmt.Fprintln(os.Stderr, "Usage: udpctl --listen host:port [--join group ...]")
		fmt.Fprintln(os.Stderr, "       udpctl --send host:port [--message text] [--count n] [--broadcast]")
		fmt.Fprintln(os.Stderr, "       udpctl -i  (interactive mode)")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(o); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(o options) (*config.Config, error) {
	cfg := config.Default()
	if o.configFile != "" {
		var err error
		if cfg, err = config.Load(o.configFile); err != nil {
			return nil, err
		}
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Listen = o.metricsAddr
	}
	if o.interactive && o.logLevel == "" {
		// Log lines would tear the alt screen
		cfg.Logging.Level = "error"
	}
	return cfg, cfg.Validate()
}

func run(o options) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	socket.SetLogger(logger.Named("socket"))
	dispatch.SetLogger(logger.Named("dispatch"))

	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		srv := serveMetrics(cfg.Metrics.Listen, reg, logger)
		defer srv.Close()
	}

	d, err := dispatch.New(cfg.DispatchOptions(logger.Named("dispatch"), reg)...)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.Shutdown(ctx); err != nil {
			logger.Warn("shutdown incomplete", zap.Error(err))
		}
	}()

	if o.interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return errors.New("interactive mode needs a terminal on stdin")
		}
		return runInteractive(d, cfg.Socket)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if o.listen != "" {
		if err := startListener(d, cfg.Socket, o); err != nil {
			return err
		}
	}

	if o.send != "" {
		if err := sendDatagrams(ctx, d, cfg.Socket, o); err != nil {
			return err
		}
		if o.listen == "" {
			return nil
		}
	}

	printEvents(ctx, d)
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return srv
}

func startListener(d *dispatch.Dispatcher, opts socket.Options, o options) error {
	host, port, err := splitEndpoint(o.listen)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	if err := d.CreateSocket(listenHandle, opts); err != nil {
		return err
	}
	res, err := d.Bind(listenHandle, port, host).Result()
	if err != nil {
		return err
	}
	fmt.Printf("Listening on %s:%d\n", res.Address, res.Port)

	for _, group := range o.join {
		if err := d.AddMembership(listenHandle, group).Err(); err != nil {
			return err
		}
		fmt.Printf("Joined %s\n", group)
	}
	return nil
}

func sendDatagrams(ctx context.Context, d *dispatch.Dispatcher, opts socket.Options, o options) error {
	host, port, err := splitEndpoint(o.send)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if err := d.CreateSocket(sendHandle, opts); err != nil {
		return err
	}
	if o.broadcast {
		if _, err := d.Bind(sendHandle, 0, "").Result(); err != nil {
			return err
		}
		if err := d.SetBroadcast(sendHandle, true).Err(); err != nil {
			return err
		}
	}

	for i := 0; i < o.count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(o.interval):
			}
		}
		if err := d.Send(sendHandle, []byte(o.message), port, host).Err(); err != nil {
			return err
		}
		fmt.Printf("Sent %d bytes to %s\n", len(o.message), o.send)
	}
	return nil
}

func printEvents(ctx context.Context, d *dispatch.Dispatcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-d.Events():
			if !ok {
				return
			}
			fmt.Println(formatEvent(ev))
		}
	}
}
