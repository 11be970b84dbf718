package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds the gateway connection settings. Flags take precedence over
// environment variables, which take precedence over the built-in defaults.
type Config struct {
	Hostname    string `validate:"required,hostname_rfc1123|ip"`
	Port        int    `validate:"min=1,max=65535"`
	Username    string `validate:"required"`
	Password    string
	VCenterUUID string `validate:"required"`

	ValidateCerts bool
	CABundlePath  string

	Timeout        time.Duration `validate:"min=1s"`
	PollInterval   time.Duration
	JobWaitTimeout time.Duration

	LogLevel  string
	LogFormat string
}

// Defaults mirror the controller's conventions: HTTPS on 443, certificate
// verification on, and a 20 minute ceiling for drift job polling.
func defaults() Config {
	return Config{
		Port:           443,
		ValidateCerts:  true,
		Timeout:        30 * time.Second,
		PollInterval:   3 * time.Second,
		JobWaitTimeout: 1200 * time.Second,
		LogLevel:       "info",
		LogFormat:      "auto",
	}
}

// Load builds a Config from the environment. A .env file in the working
// directory is applied first when present, without overriding variables
// already set in the process environment.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded configuration from .env in current directory")
	}

	cfg := defaults()

	if hostname := os.Getenv("OMEVV_HOSTNAME"); hostname != "" {
		cfg.Hostname = hostname
	}
	if port := os.Getenv("OMEVV_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		} else {
			log.Warn().Str("value", port).Msg("Ignoring non-numeric OMEVV_PORT")
		}
	}
	if username := os.Getenv("OMEVV_USERNAME"); username != "" {
		cfg.Username = username
	}
	if password := os.Getenv("OMEVV_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if scope := os.Getenv("OMEVV_VCENTER_UUID"); scope != "" {
		cfg.VCenterUUID = scope
	}
	if validateCerts := os.Getenv("OMEVV_VALIDATE_CERTS"); validateCerts != "" {
		if v, err := strconv.ParseBool(validateCerts); err == nil {
			cfg.ValidateCerts = v
		} else {
			log.Warn().Str("value", validateCerts).Msg("Ignoring non-boolean OMEVV_VALIDATE_CERTS")
		}
	}
	if caPath := os.Getenv("OMEVV_CA_PATH"); caPath != "" {
		cfg.CABundlePath = caPath
	}
	if timeout := os.Getenv("OMEVV_TIMEOUT"); timeout != "" {
		if seconds, err := strconv.Atoi(timeout); err == nil && seconds > 0 {
			cfg.Timeout = time.Duration(seconds) * time.Second
		} else {
			log.Warn().Str("value", timeout).Msg("Ignoring invalid OMEVV_TIMEOUT")
		}
	}
	if pollInterval := os.Getenv("OMEVV_POLL_INTERVAL"); pollInterval != "" {
		if seconds, err := strconv.Atoi(pollInterval); err == nil && seconds > 0 {
			cfg.PollInterval = time.Duration(seconds) * time.Second
		} else {
			log.Warn().Str("value", pollInterval).Msg("Ignoring invalid OMEVV_POLL_INTERVAL")
		}
	}
	if jobWaitTimeout := os.Getenv("OMEVV_JOB_WAIT_TIMEOUT"); jobWaitTimeout != "" {
		if seconds, err := strconv.Atoi(jobWaitTimeout); err == nil && seconds > 0 {
			cfg.JobWaitTimeout = time.Duration(seconds) * time.Second
		} else {
			log.Warn().Str("value", jobWaitTimeout).Msg("Ignoring invalid OMEVV_JOB_WAIT_TIMEOUT")
		}
	}
	if logLevel := os.Getenv("OMEVV_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat := os.Getenv("OMEVV_LOG_FORMAT"); logFormat != "" {
		cfg.LogFormat = logFormat
	}

	return cfg
}

var validate = validator.New()

// Validate reports the first problem with the connection settings in a
// message suitable for direct CLI output.
func (c Config) Validate() error {
	if _, err := uuid.Parse(c.VCenterUUID); c.VCenterUUID != "" && err != nil {
		return fmt.Errorf("vcenter uuid %q is not a valid UUID", c.VCenterUUID)
	}

	if err := validate.Struct(c); err != nil {
		var fieldErrors validator.ValidationErrors
		if ok := asValidationErrors(err, &fieldErrors); ok && len(fieldErrors) > 0 {
			return fmt.Errorf("invalid configuration: %s", describeFieldError(fieldErrors[0]))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	fieldErrors, ok := err.(validator.ValidationErrors)
	if ok {
		*target = fieldErrors
	}
	return ok
}

func describeFieldError(fieldError validator.FieldError) string {
	field := strings.ToLower(fieldError.Field())
	switch fieldError.Tag() {
	case "required":
		return field + " is required"
	case "min", "max":
		return fmt.Sprintf("%s is out of range (%s %s)", field, fieldError.Tag(), fieldError.Param())
	case "hostname_rfc1123|ip":
		return field + " must be a hostname or IP address"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fieldError.Tag())
	}
}
