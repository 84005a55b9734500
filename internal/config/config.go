package config

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/drstein77/cartview/internal/money"
	"github.com/drstein77/cartview/internal/source"
	"github.com/joho/godotenv"
)

const (
	defaultFetchTimeout = 10 * time.Second
	defaultPageTTL      = 30 * time.Minute
)

type Options struct {
	runAddr        string
	logLevel       string
	cartSourceURL  string
	fetchTimeout   time.Duration
	currencySymbol string
	pageTTL        time.Duration
}

func NewOptions() *Options {
	return new(Options)
}

// ParseFlags handles command line arguments
// and stores their values in the corresponding variables.
func (o *Options) ParseFlags() {
	// Load environment variables from the .env file
	loadEnvFile()

	if err := o.Parse(flag.CommandLine, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

// Parse registers the options on fs and parses args. Environment variables
// supply the defaults; flags override them.
func (o *Options) Parse(fs *flag.FlagSet, args []string) error {
	fs.StringVar(&o.runAddr, "a", getEnvOrDefault("RUN_ADDRESS", ":8080"), "address and port to run server")
	fs.StringVar(&o.logLevel, "l", getEnvOrDefault("LOG_LEVEL", "debug"), "log level")
	fs.StringVar(&o.cartSourceURL, "s", getEnvOrDefault("CART_SOURCE_URL", source.DefaultURL), "cart data source URL")
	fs.DurationVar(&o.fetchTimeout, "t", getDurationOrDefault("FETCH_TIMEOUT", defaultFetchTimeout), "cart fetch timeout")
	fs.StringVar(&o.currencySymbol, "c", getEnvOrDefault("CURRENCY_SYMBOL", money.DefaultSymbol), "currency symbol prefix")
	fs.DurationVar(&o.pageTTL, "p", getDurationOrDefault("PAGE_TTL", defaultPageTTL), "idle time before a cart page expires")

	// parse the arguments passed to the server into registered variables
	if err := fs.Parse(args); err != nil {
		return err
	}

	o.fetchTimeout = positiveOrDefault("-t", o.fetchTimeout, defaultFetchTimeout)
	o.pageTTL = positiveOrDefault("-p", o.pageTTL, defaultPageTTL)
	return nil
}

func (o *Options) RunAddr() string {
	return o.runAddr
}

func (o *Options) LogLevel() string {
	return o.logLevel
}

func (o *Options) CartSourceURL() string {
	return o.cartSourceURL
}

func (o *Options) FetchTimeout() time.Duration {
	return o.fetchTimeout
}

func (o *Options) CurrencySymbol() string {
	return o.currencySymbol
}

func (o *Options) PageTTL() time.Duration {
	return o.pageTTL
}

// getEnvOrDefault reads an environment variable or returns a default value if the variable is not set or is empty.
func getEnvOrDefault(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := getEnvOrDefault(key, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("Invalid duration %q in %s, using %s", value, key, defaultValue)
		return defaultValue
	}
	return d
}

// positiveOrDefault guards against a zero or negative duration given on the command line.
func positiveOrDefault(name string, d, defaultValue time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	log.Printf("Invalid duration %s for %s, using %s", d, name, defaultValue)
	return defaultValue
}

// loadEnvFile loads environment variables from a .env file
func loadEnvFile() {
	// Determine the path to the .env file relative to the current working directory
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	envPath := filepath.Join(cwd, "..", "..", ".env")

	// Load environment variables from the .env file
	err = godotenv.Load(envPath)
	if err != nil {
		log.Printf("No .env file found at %s, proceeding without it", envPath)
	} else {
		log.Printf(".env file loaded from %s", envPath)
	}
}
