package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// Sink types.
	TypeQueue = "queue"
	TypeHTTP  = "http"

	// Queue providers.
	QueueProviderAWSSQS = "aws-sqs"
	QueueProviderAWSSNS = "aws-sns"
	QueueProviderGCP    = "gcp"
	QueueProviderKafka  = "kafka"

	defaultWebhookMethod         = "POST"
	defaultWebhookTimeoutSeconds = 5
	defaultKafkaClientID         = "arthik-khobor"
)

type catalogFile struct {
	Publishers []SinkConfig `json:"publishers" yaml:"publishers"`
}

// SinkConfig declares one destination for article events.
type SinkConfig struct {
	ID      string         `json:"id" yaml:"id"`
	Type    string         `json:"type" yaml:"type"`
	Enabled *bool          `json:"enabled" yaml:"enabled"`
	Queue   *QueueConfig   `json:"queue" yaml:"queue"`
	HTTP    *WebhookConfig `json:"http" yaml:"http"`
}

// Active reports whether the sink should be built. Sinks are on unless disabled.
func (c SinkConfig) Active() bool { return c.Enabled == nil || *c.Enabled }

// QueueConfig selects a broker or cloud queue. Only the block named by
// Provider is read.
type QueueConfig struct {
	Provider string        `json:"provider" yaml:"provider"`
	SQS      *SQSConfig    `json:"sqs" yaml:"sqs"`
	SNS      *SNSConfig    `json:"sns" yaml:"sns"`
	PubSub   *PubSubConfig `json:"pubsub" yaml:"pubsub"`
	Kafka    *KafkaConfig  `json:"kafka" yaml:"kafka"`
}

// SQSConfig targets an SQS queue. Without keys the default AWS credential chain is used.
type SQSConfig struct {
	QueueURL        string `json:"queue_url" yaml:"queue_url"`
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// SNSConfig targets an SNS topic, with the same credential rules as SQSConfig.
type SNSConfig struct {
	TopicARN        string `json:"topic_arn" yaml:"topic_arn"`
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// PubSubConfig targets a Google Cloud Pub/Sub topic. OrderBySource keys
// messages by source so each outlet's events arrive in order.
type PubSubConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
	OrderBySource   bool   `json:"order_by_source" yaml:"order_by_source"`
}

// KafkaConfig targets a Kafka topic.
type KafkaConfig struct {
	Brokers  []string `json:"brokers" yaml:"brokers"`
	Topic    string   `json:"topic" yaml:"topic"`
	ClientID string   `json:"client_id" yaml:"client_id"`
	Version  string   `json:"version" yaml:"version"`
}

// WebhookConfig posts events to an HTTP endpoint.
type WebhookConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// settings is a provider specific block.
type settings interface {
	normalize()
	check(id string) error
}

// Catalog is the parsed publishers file, in file order.
type Catalog struct {
	sinks []SinkConfig
}

// LoadCatalog reads a YAML or JSON publishers file. ${VAR} references are
// expanded from the environment so credentials stay out of the file.
func LoadCatalog(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}
	return ParseCatalog([]byte(os.ExpandEnv(string(raw))), filepath.Ext(path))
}

// ParseCatalog decodes, normalizes and validates a publishers document.
func ParseCatalog(data []byte, ext string) (*Catalog, error) {
	var file catalogFile
	var err error
	switch ext = strings.ToLower(strings.TrimSpace(ext)); ext {
	case ".json":
		err = json.Unmarshal(data, &file)
	case "", ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	default:
		return nil, fmt.Errorf("publishers file format %q not recognized (expected YAML or JSON)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode publishers: %w", err)
	}
	if len(file.Publishers) == 0 {
		return nil, errors.New("publishers file contains no publishers entries")
	}

	seen := make(map[string]struct{}, len(file.Publishers))
	for i := range file.Publishers {
		sink := &file.Publishers[i]
		sink.normalize()
		if err := sink.validate(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := seen[sink.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", sink.ID)
		}
		seen[sink.ID] = struct{}{}
	}
	return &Catalog{sinks: file.Publishers}, nil
}

// Lookup finds a sink by id.
func (c *Catalog) Lookup(id string) (SinkConfig, bool) {
	if c == nil {
		return SinkConfig{}, false
	}
	id = strings.TrimSpace(id)
	for _, s := range c.sinks {
		if s.ID == id {
			return s, true
		}
	}
	return SinkConfig{}, false
}

// All returns every declared sink.
func (c *Catalog) All() []SinkConfig {
	if c == nil {
		return nil
	}
	return append([]SinkConfig(nil), c.sinks...)
}

// Active returns the sinks that are not disabled.
func (c *Catalog) Active() []SinkConfig {
	var out []SinkConfig
	for _, s := range c.All() {
		if s.Active() {
			out = append(out, s)
		}
	}
	return out
}

func (c *SinkConfig) normalize() {
	trimAll(&c.ID)
	c.Type = strings.ToLower(strings.TrimSpace(c.Type))
	if c.Queue != nil {
		c.Queue.normalize()
	}
	if c.HTTP != nil {
		c.HTTP.normalize()
	}
}

func (c SinkConfig) validate() error {
	if c.ID == "" {
		return errors.New("id is required")
	}
	switch c.Type {
	case TypeHTTP:
		if c.HTTP == nil {
			return fmt.Errorf("publisher %q: http block required", c.ID)
		}
		return c.HTTP.check(c.ID)
	case TypeQueue:
		if c.Queue == nil {
			return fmt.Errorf("publisher %q: queue block required", c.ID)
		}
		block, err := c.Queue.selected(c.ID)
		if err != nil {
			return err
		}
		return block.check(c.ID)
	case "":
		return fmt.Errorf("publisher %q: type is required", c.ID)
	default:
		return fmt.Errorf("publisher %q: type %q not supported", c.ID, c.Type)
	}
}

func (q *QueueConfig) normalize() {
	q.Provider = strings.ToLower(strings.TrimSpace(q.Provider))
	for _, block := range q.blocks() {
		block.normalize()
	}
}

// blocks returns the provider blocks present in the file.
func (q *QueueConfig) blocks() []settings {
	var out []settings
	if q.SQS != nil {
		out = append(out, q.SQS)
	}
	if q.SNS != nil {
		out = append(out, q.SNS)
	}
	if q.PubSub != nil {
		out = append(out, q.PubSub)
	}
	if q.Kafka != nil {
		out = append(out, q.Kafka)
	}
	return out
}

// selected returns the block matching Provider.
func (q *QueueConfig) selected(id string) (settings, error) {
	var (
		block settings
		key   string
	)
	switch q.Provider {
	case QueueProviderAWSSQS:
		key = "sqs"
		if q.SQS != nil {
			block = q.SQS
		}
	case QueueProviderAWSSNS:
		key = "sns"
		if q.SNS != nil {
			block = q.SNS
		}
	case QueueProviderGCP:
		key = "pubsub"
		if q.PubSub != nil {
			block = q.PubSub
		}
	case QueueProviderKafka:
		key = "kafka"
		if q.Kafka != nil {
			block = q.Kafka
		}
	default:
		return nil, fmt.Errorf("publisher %q: queue provider %q not supported", id, q.Provider)
	}
	if block == nil {
		return nil, fmt.Errorf("publisher %q: queue.%s block required", id, key)
	}
	return block, nil
}

func (c *SQSConfig) normalize() {
	trimAll(&c.QueueURL, &c.Region, &c.AccessKeyID, &c.SecretAccessKey)
}

func (c *SQSConfig) check(id string) error {
	return errors.Join(
		required(id, field{"sqs.queue_url", c.QueueURL}, field{"sqs.region", c.Region}),
		pairedKeys(id, "sqs", c.AccessKeyID, c.SecretAccessKey),
	)
}

func (c *SNSConfig) normalize() {
	trimAll(&c.TopicARN, &c.Region, &c.AccessKeyID, &c.SecretAccessKey)
}

func (c *SNSConfig) check(id string) error {
	return errors.Join(
		required(id, field{"sns.topic_arn", c.TopicARN}, field{"sns.region", c.Region}),
		pairedKeys(id, "sns", c.AccessKeyID, c.SecretAccessKey),
	)
}

func (c *PubSubConfig) normalize() {
	trimAll(&c.ProjectID, &c.Topic, &c.CredentialsFile)
}

func (c *PubSubConfig) check(id string) error {
	return required(id, field{"pubsub.project_id", c.ProjectID}, field{"pubsub.topic", c.Topic})
}

func (c *KafkaConfig) normalize() {
	brokers := c.Brokers[:0]
	for _, b := range c.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	c.Brokers = brokers
	trimAll(&c.Topic, &c.ClientID, &c.Version)
	if c.ClientID == "" {
		c.ClientID = defaultKafkaClientID
	}
}

func (c *KafkaConfig) check(id string) error {
	return required(id, field{"kafka.brokers", strings.Join(c.Brokers, ",")}, field{"kafka.topic", c.Topic})
}

func (c *WebhookConfig) normalize() {
	trimAll(&c.URL)
	c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
	if c.Method == "" {
		c.Method = defaultWebhookMethod
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultWebhookTimeoutSeconds
	}
	headers := make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" && v != "" {
			headers[k] = v
		}
	}
	c.Headers = nil
	if len(headers) > 0 {
		c.Headers = headers
	}
}

func (c *WebhookConfig) check(id string) error {
	return required(id, field{"http.url", c.URL})
}

type field struct {
	name  string
	value string
}

// required reports every empty field in one error.
func required(id string, fields ...field) error {
	var missing []string
	for _, f := range fields {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("publisher %q: %s required", id, strings.Join(missing, ", "))
}

// pairedKeys rejects an access key without its secret and vice versa.
func pairedKeys(id, prefix, accessKey, secretKey string) error {
	if (accessKey == "") == (secretKey == "") {
		return nil
	}
	return fmt.Errorf("publisher %q: %s.access_key_id and %s.secret_access_key must be set together", id, prefix, prefix)
}

func trimAll(values ...*string) {
	for _, v := range values {
		*v = strings.TrimSpace(*v)
	}
}
