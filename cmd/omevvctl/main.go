package main

import (
	"encoding/json"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/openmanage-kit/omevvctl/internal/config"
	"github.com/openmanage-kit/omevvctl/internal/logging"
	"github.com/openmanage-kit/omevvctl/internal/omevv"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Exit codes reported to the shell. Reconciliation outcomes never terminate
// the process from inside the library packages; this dispatcher alone maps
// an outcome to exit semantics.
const (
	exitOK          = 0
	exitFailed      = 1
	exitUnreachable = 2
	exitSkipped     = 3
)

var exitCode = exitOK

var cfg config.Config

var validate = validator.New()

// Connection flags, applied over the environment-driven configuration.
var (
	flagHostname      string
	flagPort          int
	flagUsername      string
	flagPassword      string
	flagVCenterUUID   string
	flagValidateCerts bool
	flagCAPath        string
	flagTimeout       time.Duration
	flagLogLevel      string
	flagLogFormat     string
)

var rootCmd = &cobra.Command{
	Use:           "omevvctl",
	Short:         "omevvctl - baseline profile lifecycle manager for OMEVV",
	Long:          `omevvctl reconciles firmware baseline profiles and repository profiles on an OpenManage Enterprise Integration for VMware vCenter (OMEVV) controller`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagHostname, "hostname", "", "OMEVV gateway hostname or IP (env OMEVV_HOSTNAME)")
	flags.IntVar(&flagPort, "port", 443, "OMEVV gateway port (env OMEVV_PORT)")
	flags.StringVar(&flagUsername, "username", "", "vCenter username (env OMEVV_USERNAME)")
	flags.StringVar(&flagPassword, "password", "", "vCenter password (env OMEVV_PASSWORD, prompted when unset)")
	flags.StringVar(&flagVCenterUUID, "vcenter-uuid", "", "vCenter instance UUID scoping all operations (env OMEVV_VCENTER_UUID)")
	flags.BoolVar(&flagValidateCerts, "validate-certs", true, "verify the gateway TLS certificate")
	flags.StringVar(&flagCAPath, "ca-path", "", "path to a CA bundle for gateway TLS verification")
	flags.DurationVar(&flagTimeout, "timeout", 30*time.Second, "per-request HTTP timeout")
	flags.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&flagLogFormat, "log-format", "", "log format: json, console, auto")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(repositoryCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("omevvctl %s\n", Version)
		if BuildTime != "unknown" {
			fmt.Printf("Built: %s\n", BuildTime)
		}
		if GitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", GitCommit)
		}
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitFailed)
	}
	os.Exit(exitCode)
}

// loadConfig merges flags over the environment configuration, initializes
// logging, and validates the result.
func loadConfig(cmd *cobra.Command) error {
	cfg = config.Load()

	changed := cmd.Flags().Changed
	if changed("hostname") {
		cfg.Hostname = flagHostname
	}
	if changed("port") {
		cfg.Port = flagPort
	}
	if changed("username") {
		cfg.Username = flagUsername
	}
	if changed("password") {
		cfg.Password = flagPassword
	}
	if changed("vcenter-uuid") {
		cfg.VCenterUUID = flagVCenterUUID
	}
	if changed("validate-certs") {
		cfg.ValidateCerts = flagValidateCerts
	}
	if changed("ca-path") {
		cfg.CABundlePath = flagCAPath
	}
	if changed("timeout") {
		cfg.Timeout = flagTimeout
	}
	if changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	if changed("log-format") {
		cfg.LogFormat = flagLogFormat
	}

	logging.Init(logging.Config{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		Component: "omevvctl",
	})

	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.Password == "" {
		password, err := promptPassword(fmt.Sprintf("Password for %s: ", cfg.Username))
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		cfg.Password = password
	}
	return nil
}

var readPassword = term.ReadPassword

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	bytePassword, err := readPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(bytePassword), nil
}

func buildClient() (*omevv.Client, error) {
	return omevv.NewClient(omevv.ClientConfig{
		Hostname:           cfg.Hostname,
		Port:               cfg.Port,
		Username:           cfg.Username,
		Password:           cfg.Password,
		VCenterUUID:        cfg.VCenterUUID,
		CAPath:             cfg.CABundlePath,
		InsecureSkipVerify: !cfg.ValidateCerts,
		Timeout:            cfg.Timeout,
	})
}

// renderOutcome prints the outcome as JSON on stdout and records the exit
// code for main.
func renderOutcome(outcome any, failed, unreachable, skipped bool) {
	encoded, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode outcome")
		exitCode = exitFailed
		return
	}
	fmt.Println(string(encoded))

	switch {
	case unreachable:
		exitCode = exitUnreachable
	case failed:
		exitCode = exitFailed
	case skipped:
		exitCode = exitSkipped
	}
}
