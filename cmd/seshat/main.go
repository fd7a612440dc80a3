package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/SeshatHQ/seshat"
	"github.com/SeshatHQ/seshat/cmd/seshat/internal/config"
	"github.com/SeshatHQ/seshat/cmd/seshat/internal/entrypoint"
	"github.com/SeshatHQ/seshat/internal"
	"github.com/facebookgo/flagenv"
	"github.com/joho/godotenv"
)

var (
	bind            = flag.String("bind", seshat.DefaultBind, "network address for the public HTTP listener")
	metricsBind     = flag.String("metrics-bind", seshat.DefaultMetricsBind, "network address for metrics, health, and pprof")
	configFname     = flag.String("config", "", "configuration file (.hcl, .json, .yaml); when set, flags below are ignored")
	counterKey      = flag.String("counter-key", seshat.DefaultCounterKey, "store key the visit counter lives under")
	serializedStore = flag.Bool("serialized-store", false, "funnel store calls through one actor per operation kind")
	slogLevel       = flag.String("slog-level", "INFO", "logging level (see https://pkg.go.dev/log/slog#hdr-Levels)")
	storeBackend    = flag.String("store-backend", "valkey", "store backend (valkey, bbolt, mongo, memory)")
	storeParams     = flag.String("store-params", fmt.Sprintf(`{"url":%q}`, seshat.DefaultStoreURL), "store backend parameters (JSON)")
	storeTimeout    = flag.Duration("store-timeout", 0, "per-request store timeout, 0 means the built-in default")
	trustedProxies  = flag.String("trusted-proxies", "", "comma separated CIDR ranges whose X-Forwarded-For is trusted")
	versionFlag     = flag.Bool("version", false, "if true, show version information then quit")
)

func main() {
	// A .env file is optional, envvars beat it either way.
	_ = godotenv.Load()

	flagenv.Parse()
	flag.Parse()

	if *versionFlag {
		fmt.Println("Seshat", seshat.Version)
		return
	}

	internal.InitSlog(*slogLevel)

	opts := entrypoint.Options{
		ConfigFname: *configFname,
		SlogLevel:   *slogLevel,
	}

	if *configFname == "" {
		timeout := ""
		if *storeTimeout > 0 {
			timeout = storeTimeout.String()
		}

		opts.Config = &config.Toplevel{
			Bind: &config.Bind{
				HTTP:    *bind,
				Metrics: *metricsBind,
			},
			Store: config.Store{
				Backend:    *storeBackend,
				Parameters: *storeParams,
				Serialized: *serializedStore,
			},
			Logging: (config.Logging{}).Default(),
			Counter: &config.Counter{
				Key:          *counterKey,
				StoreTimeout: timeout,
			},
			TrustedProxies: splitComma(*trustedProxies),
		}
	}

	if err := entrypoint.Main(opts); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func splitComma(s string) []string {
	var result []string

	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}

	return result
}
