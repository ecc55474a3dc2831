package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// maxSeconds is the largest second count that still fits a time.Duration.
const maxSeconds = math.MaxInt64 / int64(time.Second)

var ErrInvalidConfig = errors.New("invalid agent config")

// AgentConfig is the document the agent is started with.
type AgentConfig struct {
	ServerAddress         string          `yaml:"server_address" json:"server_address" bson:"server_address" validate:"required"`
	ServerPort            uint16          `yaml:"server_port" json:"server_port" bson:"server_port" validate:"required"`
	Commands              []CommandConfig `yaml:"commands" json:"commands" bson:"commands" validate:"required,dive"`
	RequestTimeoutSeconds uint64          `yaml:"request_timeout_seconds,omitempty" json:"request_timeout_seconds,omitempty" bson:"request_timeout_seconds,omitempty" validate:"lte=9223372036"`
	CircuitBreaker        *BreakerConfig  `yaml:"circuit_breaker,omitempty" json:"circuit_breaker,omitempty" bson:"circuit_breaker,omitempty"`
	Sinks                 SinksConfig     `yaml:"sinks,omitempty" json:"sinks,omitempty" bson:"sinks,omitempty"`
}

type CommandConfig struct {
	Command         string `yaml:"command" json:"command" bson:"command" validate:"cmdline"`
	IntervalSeconds uint64 `yaml:"interval_seconds" json:"interval_seconds" bson:"interval_seconds" validate:"gt=0,lte=9223372036"`
	TimeoutSeconds  uint64 `yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty" bson:"timeout_seconds,omitempty" validate:"lte=9223372036"`
}

type BreakerConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled" bson:"enabled"`
	MaxFailures uint32 `yaml:"max_failures" json:"max_failures" bson:"max_failures"`
	OpenSeconds uint32 `yaml:"open_seconds" json:"open_seconds" bson:"open_seconds"`
}

type SinksConfig struct {
	Kafka *KafkaSink `yaml:"kafka,omitempty" json:"kafka,omitempty" bson:"kafka,omitempty"`
	MQTT  *MQTTSink  `yaml:"mqtt,omitempty" json:"mqtt,omitempty" bson:"mqtt,omitempty"`
	Redis *RedisSink `yaml:"redis,omitempty" json:"redis,omitempty" bson:"redis,omitempty"`
}

type KafkaSink struct {
	Brokers []string `yaml:"brokers" json:"brokers" bson:"brokers" validate:"required,min=1,dive,required"`
	Topic   string   `yaml:"topic" json:"topic" bson:"topic" validate:"required"`
}

type MQTTSink struct {
	Broker   string `yaml:"broker" json:"broker" bson:"broker" validate:"required"`
	Topic    string `yaml:"topic" json:"topic" bson:"topic" validate:"required"`
	ClientID string `yaml:"client_id,omitempty" json:"client_id,omitempty" bson:"client_id,omitempty"`
	QoS      byte   `yaml:"qos,omitempty" json:"qos,omitempty" bson:"qos,omitempty" validate:"lte=1"`
}

type RedisSink struct {
	URL     string `yaml:"url" json:"url" bson:"url" validate:"required"`
	Channel string `yaml:"channel" json:"channel" bson:"channel" validate:"required"`
}

// CommandSpec is a validated command with its schedule.
type CommandSpec struct {
	Command  string
	Interval time.Duration
	Timeout  time.Duration
}

// EndpointConfig is where results are delivered.
type EndpointConfig struct {
	Host string
	Port uint16
}

func NewAgentConfig() *AgentConfig {
	return &AgentConfig{}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// cmdline: at least one non-whitespace token to use as the program name
	_ = v.RegisterValidation("cmdline", func(fl validator.FieldLevel) bool {
		return len(strings.Fields(fl.Field().String())) > 0
	})
	return v
}

// Validate checks the document and returns ErrInvalidConfig wrapping
// the individual field errors.
func (c *AgentConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c *AgentConfig) Endpoint() EndpointConfig {
	return EndpointConfig{Host: c.ServerAddress, Port: c.ServerPort}
}

func (c *AgentConfig) RequestTimeout() time.Duration {
	return seconds(c.RequestTimeoutSeconds)
}

// CommandSpecs converts the configured commands, preserving their order.
func (c *AgentConfig) CommandSpecs() []CommandSpec {
	specs := make([]CommandSpec, 0, len(c.Commands))
	for _, cmd := range c.Commands {
		specs = append(specs, cmd.Spec())
	}
	return specs
}

func (c CommandConfig) Spec() CommandSpec {
	return CommandSpec{
		Command:  c.Command,
		Interval: seconds(c.IntervalSeconds),
		Timeout:  seconds(c.TimeoutSeconds),
	}
}

func seconds(n uint64) time.Duration {
	if n > uint64(maxSeconds) {
		n = uint64(maxSeconds)
	}
	return time.Duration(n) * time.Second
}
