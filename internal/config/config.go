// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	RPCURL        string `mapstructure:"rpc_url"`
	PrivateKey    string `mapstructure:"private_key"`
	RouterAddress string `mapstructure:"router_address"`
	WrappedNative string `mapstructure:"wrapped_native"`

	TargetsFile   string `mapstructure:"targets_file"`
	PositionsFile string `mapstructure:"positions_file"`

	PollIntervalMs         int     `mapstructure:"poll_interval_ms"`
	RPCTimeoutMs           int     `mapstructure:"rpc_timeout_ms"`
	GasMultiplier          float64 `mapstructure:"gas_multiplier"`
	GasLimit               uint64  `mapstructure:"gas_limit"`
	ApproveGasLimit        uint64  `mapstructure:"approve_gas_limit"`
	SwapDeadlineS          int     `mapstructure:"swap_deadline_s"`
	SubmitRetries          int     `mapstructure:"submit_retries"`
	SubmitRetryDelayMs     int     `mapstructure:"submit_retry_delay_ms"`
	SwapReceiptTimeoutS    int     `mapstructure:"swap_receipt_timeout_s"`
	ApproveReceiptTimeoutS int     `mapstructure:"approve_receipt_timeout_s"`
	QueueSize              int     `mapstructure:"queue_size"`
	RearmOnFailure         bool    `mapstructure:"rearm_on_failure"`

	TelegramToken  string `mapstructure:"telegram_token"`
	TelegramChatID int64  `mapstructure:"telegram_chat_id"`

	MetricsAddr  string `mapstructure:"metrics_addr"`
	LogFile      string `mapstructure:"log_file"`
	DebugLogging bool   `mapstructure:"debug_logging"`

	PollInterval          time.Duration `mapstructure:"-"`
	RPCTimeout            time.Duration `mapstructure:"-"`
	SwapDeadline          time.Duration `mapstructure:"-"`
	SubmitRetryDelay      time.Duration `mapstructure:"-"`
	SwapReceiptTimeout    time.Duration `mapstructure:"-"`
	ApproveReceiptTimeout time.Duration `mapstructure:"-"`
}

const (
	DefaultRPCURL        = "https://bsc-dataseed.binance.org"
	DefaultRouterAddress = "0x10ED43C718714eb63d5aA57B78B54704E256024E" // PancakeSwap v2
	DefaultWrappedNative = "0xBB4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c" // WBNB

	DefaultPollIntervalMs         = 3000
	DefaultRPCTimeoutMs           = 10000
	DefaultGasMultiplier          = 1.2
	DefaultGasLimit               = 300000
	DefaultApproveGasLimit        = 100000
	DefaultSwapDeadlineS          = 60
	DefaultSubmitRetries          = 3
	DefaultSubmitRetryDelayMs     = 2000
	DefaultSwapReceiptTimeoutS    = 180
	DefaultApproveReceiptTimeoutS = 120
	DefaultQueueSize              = 16
)

const envPrefix = "SNIPER"

// envAliases maps config keys to extra unprefixed environment names.
var envAliases = map[string][]string{
	"rpc_url":          {"RPC_URL"},
	"private_key":      {"PRIVATE_KEY"},
	"router_address":   {"ROUTER_ADDRESS"},
	"wrapped_native":   {"WRAPPED_NATIVE"},
	"gas_multiplier":   {"GAS_MULTIPLIER"},
	"positions_file":   {"POSITIONS_FILE"},
	"telegram_token":   {"TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN"},
	"telegram_chat_id": {"TELEGRAM_CHAT_ID"},
}

// LoadConfig reads .env, then path (optional), then environment overrides.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	defaults := map[string]interface{}{
		"rpc_url":                   DefaultRPCURL,
		"router_address":            DefaultRouterAddress,
		"wrapped_native":            DefaultWrappedNative,
		"targets_file":              "targets.yaml",
		"positions_file":            "positions.json",
		"poll_interval_ms":          DefaultPollIntervalMs,
		"rpc_timeout_ms":            DefaultRPCTimeoutMs,
		"gas_multiplier":            DefaultGasMultiplier,
		"gas_limit":                 DefaultGasLimit,
		"approve_gas_limit":         DefaultApproveGasLimit,
		"swap_deadline_s":           DefaultSwapDeadlineS,
		"submit_retries":            DefaultSubmitRetries,
		"submit_retry_delay_ms":     DefaultSubmitRetryDelayMs,
		"swap_receipt_timeout_s":    DefaultSwapReceiptTimeoutS,
		"approve_receipt_timeout_s": DefaultApproveReceiptTimeoutS,
		"queue_size":                DefaultQueueSize,
		"rearm_on_failure":          false,
		"metrics_addr":              "",
		"log_file":                  "logs/sniper.log",
		"debug_logging":             false,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := bindEnvironment(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := loadEnvironmentVariables(&cfg); err != nil {
		return nil, err
	}

	cfg.resolveDurations()
	return &cfg, validateConfig(&cfg)
}

func bindEnvironment(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, aliases := range envAliases {
		names := append([]string{envPrefix + "_" + strings.ToUpper(key)}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// loadEnvironmentVariables handles legacy variables that do not map 1:1 to a key.
func loadEnvironmentVariables(cfg *Config) error {
	// POLL_INTERVAL is whole seconds.
	if raw := strings.TrimSpace(os.Getenv("POLL_INTERVAL")); raw != "" && os.Getenv(envPrefix+"_POLL_INTERVAL_MS") == "" {
		secs, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid POLL_INTERVAL %q: %w", raw, err)
		}
		cfg.PollIntervalMs = secs * 1000
	}
	return nil
}

func (c *Config) resolveDurations() {
	c.PollInterval = time.Duration(c.PollIntervalMs) * time.Millisecond
	c.RPCTimeout = time.Duration(c.RPCTimeoutMs) * time.Millisecond
	c.SwapDeadline = time.Duration(c.SwapDeadlineS) * time.Second
	c.SubmitRetryDelay = time.Duration(c.SubmitRetryDelayMs) * time.Millisecond
	c.SwapReceiptTimeout = time.Duration(c.SwapReceiptTimeoutS) * time.Second
	c.ApproveReceiptTimeout = time.Duration(c.ApproveReceiptTimeoutS) * time.Second
}

func validateConfig(cfg *Config) error {
	if cfg.PrivateKey == "" {
		return errors.New("missing private key (SNIPER_PRIVATE_KEY or PRIVATE_KEY)")
	}
	if err := validateURL(cfg.RPCURL); err != nil {
		return fmt.Errorf("invalid rpc_url: %w", err)
	}
	if !common.IsHexAddress(cfg.RouterAddress) {
		return fmt.Errorf("invalid router_address %q", cfg.RouterAddress)
	}
	if cfg.WrappedNative != "" && !common.IsHexAddress(cfg.WrappedNative) {
		return fmt.Errorf("invalid wrapped_native %q", cfg.WrappedNative)
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID == 0 {
		return errors.New("telegram_chat_id is required when telegram_token is set")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	switch {
	case cfg.PollIntervalMs <= 0:
		return errors.New("invalid poll_interval_ms")
	case cfg.RPCTimeoutMs < 0:
		return errors.New("invalid rpc_timeout_ms")
	case cfg.GasMultiplier < 1:
		return errors.New("gas_multiplier must be >= 1")
	case cfg.GasLimit == 0 || cfg.ApproveGasLimit == 0:
		return errors.New("gas limits must be positive")
	case cfg.SwapDeadlineS <= 0:
		return errors.New("invalid swap_deadline_s")
	case cfg.SubmitRetries < 1:
		return errors.New("submit_retries must be >= 1")
	case cfg.SubmitRetryDelayMs < 0:
		return errors.New("invalid submit_retry_delay_ms")
	case cfg.SwapReceiptTimeoutS <= 0 || cfg.ApproveReceiptTimeoutS <= 0:
		return errors.New("receipt timeouts must be positive")
	case cfg.QueueSize < 0:
		return errors.New("invalid queue_size")
	}
	return nil
}

func validateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	switch parsed.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// MaskedRPC returns the RPC URL without credentials, query or path, which
// commonly carry API keys.
func (c *Config) MaskedRPC() string {
	parsed, err := url.Parse(c.RPCURL)
	if err != nil || parsed.Host == "" {
		return "***"
	}
	masked := parsed.Scheme + "://" + parsed.Host
	if parsed.User != nil || parsed.RawQuery != "" || strings.Trim(parsed.Path, "/") != "" {
		masked += "/***"
	}
	return masked
}
