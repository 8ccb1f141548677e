// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/spf13/viper"
)

type Config struct {
	ListingURL          string   `mapstructure:"listing_url"`
	RPCList             []string `mapstructure:"rpc_list"`
	LiquidationContract string   `mapstructure:"liquidation_contract"`
	LendingPool         string   `mapstructure:"lending_pool"`
	CallerAddress       string   `mapstructure:"caller_address"`
	LiquidatorContract  string   `mapstructure:"liquidator_contract"`
	SignerURL           string   `mapstructure:"signer_url"`
	GasPriceGwei        int64    `mapstructure:"gas_price_gwei"`
	NativeSymbol        string   `mapstructure:"native_symbol"`
	RefreshDelayMS      int      `mapstructure:"refresh_delay"`
	FetchTimeoutMS      int      `mapstructure:"fetch_timeout"`
	CallTimeoutMS       int      `mapstructure:"call_timeout"`
	Workers             int      `mapstructure:"workers"`
	IsolateFailures     bool     `mapstructure:"isolate_failures"`
	Retries             int      `mapstructure:"retries"`
	HTTPListen          string   `mapstructure:"http_listen"`
	DebugLogging        bool     `mapstructure:"debug_logging"`
	LogFile             string   `mapstructure:"log_file"`

	RefreshDelay time.Duration `mapstructure:"-"`
	FetchTimeout time.Duration `mapstructure:"-"`
	CallTimeout  time.Duration `mapstructure:"-"`
}

const (
	DefaultListingURL   = "https://protocol-api.aave.com/data/users/liquidations"
	DefaultLendingPool  = "0x398eC7346DcD622eDc5ae82352F02bE94C62d119"
	DefaultNativeSymbol = "ETH"
	DefaultRefreshDelay = 5000
	DefaultFetchTimeout = 10000
	DefaultCallTimeout  = 10000
	DefaultWorkers      = 8
	DefaultRetries      = 5
	DefaultHTTPListen   = ":8080"
	DefaultLogFile      = "liquidator.log"
	DefaultGasPriceGwei = 6

	envPrefix = "LIQUIDATOR"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"listing_url":    DefaultListingURL,
		"lending_pool":   DefaultLendingPool,
		"native_symbol":  DefaultNativeSymbol,
		"refresh_delay":  DefaultRefreshDelay,
		"fetch_timeout":  DefaultFetchTimeout,
		"call_timeout":   DefaultCallTimeout,
		"workers":        DefaultWorkers,
		"retries":        DefaultRetries,
		"http_listen":    DefaultHTTPListen,
		"log_file":       DefaultLogFile,
		"gas_price_gwei": DefaultGasPriceGwei,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}

	loadEnvironmentVariables(v, &cfg)

	cfg.RefreshDelay = time.Duration(cfg.RefreshDelayMS) * time.Millisecond
	cfg.FetchTimeout = time.Duration(cfg.FetchTimeoutMS) * time.Millisecond
	cfg.CallTimeout = time.Duration(cfg.CallTimeoutMS) * time.Millisecond

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http", "ws"); err != nil {
			return fmt.Errorf("invalid RPC URL %q: %w", MaskURL(rpcURL), err)
		}
	}
	if err := validateURLWithCache(cfg.ListingURL, "http"); err != nil {
		return fmt.Errorf("invalid listing_url: %w", err)
	}
	if err := validateContract("liquidation_contract", cfg.LiquidationContract); err != nil {
		return err
	}
	if err := validateContract("lending_pool", cfg.LendingPool); err != nil {
		return err
	}
	if cfg.CallerAddress != "" && !common.IsHexAddress(cfg.CallerAddress) {
		return errors.New("caller_address must be a hex address")
	}
	if cfg.NativeSymbol == "" {
		return errors.New("native_symbol is empty")
	}
	if err := validateLiquidator(cfg); err != nil {
		return err
	}
	return validateNumericParams(cfg)
}

// validateContract rejects malformed and zero contract addresses.
func validateContract(field, addr string) error {
	if !common.IsHexAddress(addr) {
		return fmt.Errorf("%s must be a hex address (set it in the config or via %s_%s)",
			field, envPrefix, strings.ToUpper(field))
	}
	if common.HexToAddress(addr) == (common.Address{}) {
		return fmt.Errorf("%s must not be the zero address", field)
	}
	return nil
}

// validateLiquidator checks the optional transaction side. An empty
// liquidator_contract disables liquidation.
func validateLiquidator(cfg *Config) error {
	if cfg.LiquidatorContract == "" {
		return nil
	}
	if err := validateContract("liquidator_contract", cfg.LiquidatorContract); err != nil {
		return err
	}
	if cfg.CallerAddress == "" || common.HexToAddress(cfg.CallerAddress) == (common.Address{}) {
		return errors.New("caller_address is required when liquidator_contract is set")
	}
	if cfg.SignerURL == "" {
		return errors.New("signer_url is required when liquidator_contract is set")
	}
	// без схемы это путь к IPC-сокету внешнего подписанта
	if strings.Contains(cfg.SignerURL, "://") {
		if err := validateURLWithCache(cfg.SignerURL, "http", "ws"); err != nil {
			return fmt.Errorf("invalid signer_url: %w", err)
		}
	}
	if cfg.GasPriceGwei <= 0 {
		return errors.New("invalid gas_price_gwei")
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.RefreshDelayMS <= 0 {
		return errors.New("invalid refresh_delay")
	}
	if cfg.FetchTimeoutMS <= 0 {
		return errors.New("invalid fetch_timeout")
	}
	if cfg.CallTimeoutMS <= 0 {
		return errors.New("invalid call_timeout")
	}
	if cfg.Workers <= 0 {
		return errors.New("invalid workers count")
	}
	if cfg.Retries < 0 {
		return errors.New("invalid retries count")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, schemes ...string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return errors.New("invalid URL format")
	}
	for _, scheme := range schemes {
		if strings.HasPrefix(parsed.Scheme, scheme) {
			urlCache.Store(rawURL, parsed)
			return nil
		}
	}
	return errors.New("invalid URL protocol")
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if envRPCList := v.GetString("RPC_LIST"); envRPCList != "" {
		var cleanRPCs []string
		for _, rpc := range strings.Split(envRPCList, ",") {
			if clean := strings.TrimSpace(rpc); clean != "" {
				cleanRPCs = append(cleanRPCs, clean)
			}
		}
		if len(cleanRPCs) > 0 {
			cfg.RPCList = cleanRPCs
		}
	}
	if contract := v.GetString("LIQUIDATION_CONTRACT"); contract != "" {
		cfg.LiquidationContract = contract
	}
	if caller := v.GetString("CALLER_ADDRESS"); caller != "" {
		cfg.CallerAddress = caller
	}
	if liquidator := v.GetString("LIQUIDATOR_CONTRACT"); liquidator != "" {
		cfg.LiquidatorContract = liquidator
	}
	if signer := v.GetString("SIGNER_URL"); signer != "" {
		cfg.SignerURL = signer
	}
}

// Addresses returns the parsed contract and caller addresses.
func (c *Config) Addresses() (liquidation, lendingPool, caller common.Address) {
	return common.HexToAddress(c.LiquidationContract),
		common.HexToAddress(c.LendingPool),
		common.HexToAddress(c.CallerAddress)
}

// LiquidationEnabled reports whether liquidation transactions are configured.
func (c *Config) LiquidationEnabled() bool {
	return c.LiquidatorContract != ""
}

// GasPrice returns the configured legacy gas price in wei.
func (c *Config) GasPrice() *big.Int {
	return new(big.Int).Mul(big.NewInt(c.GasPriceGwei), big.NewInt(params.GWei))
}

// MaskURL hides API keys carried in the path or query of provider URLs
// (Infura and Alchemy put them in the path).
func MaskURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "***"
	}
	masked := parsed.Scheme + "://" + parsed.Host
	if parsed.Path != "" && parsed.Path != "/" || parsed.RawQuery != "" {
		masked += "/***"
	}
	return masked
}

// GetMaskedRPCList returns RPC list with masked API keys for logging
func (c *Config) GetMaskedRPCList() []string {
	masked := make([]string, len(c.RPCList))
	for i, rpc := range c.RPCList {
		masked[i] = MaskURL(rpc)
	}
	return masked
}
