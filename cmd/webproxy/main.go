package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	webproxy "github.com/kkudrolli/Web-Proxy"
	"github.com/kkudrolli/Web-Proxy/cache"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// CLI flags
	providerFlag       string
	debugAddrFlag      string
	verbosityTraceFlag bool
	logFilenameFlag    string
)

func init() {
	flag.StringVar(&providerFlag, "provider", "memory", "Cache provider to use (memory or sqlite)")
	flag.StringVar(&debugAddrFlag, "debug", "", "Address for the debug/stats listener (disabled if empty)")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stdout)")
	flag.Usage = usage
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] <port>\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Parse()

	// the listen port is the one mandatory positional argument
	if flag.NArg() != 1 {
		usage()
		os.Exit(1)
	}

	// set log level
	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}

	// set up log output to stdout
	// also output to logfile if specified
	logOutputs := make([]io.Writer, 0)
	logOutputs = append(logOutputs, zerolog.ConsoleWriter{Out: os.Stdout})
	if logFilenameFlag != "" {
		if logFileOutput, err := os.OpenFile(logFilenameFlag, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644); err != nil {
			log.Fatal().Err(err).Msg("Cannot open log file")
		} else {
			logOutputs = append(logOutputs, logFileOutput)
		}
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter)

	port, err := strconv.Atoi(flag.Arg(0))
	if err != nil || port <= 0 {
		log.Fatal().Msgf("Invalid port: %s", flag.Arg(0))
	}

	// use configured provider, bail if unknown
	var store cache.Store
	switch providerFlag {
	case "memory":
		store = cache.NewMemoryStore(cache.DefaultMaxCacheSize, cache.DefaultMaxObjectSize)
	case "sqlite":
		store, err = cache.NewSQLiteStore("file:webproxy?mode=memory&cache=shared",
			cache.DefaultMaxCacheSize, cache.DefaultMaxObjectSize)
		if err != nil {
			log.Fatal().Err(err).Msg("Cannot open sqlite cache")
		}
	default:
		log.Fatal().Msgf("Unsupported cache provider: %s", providerFlag)
	}
	defer store.Close()

	proxy := webproxy.New(webproxy.Config{
		Port:      port,
		Cache:     store,
		Logger:    &log.Logger,
		DebugAddr: debugAddrFlag,
	})

	if err := proxy.Run(); err != nil {
		log.Fatal().Err(err).Msg("Proxy terminated")
	}
}
