package reporter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	dm "github.com/andrej220/hamagent/pkg/shared-models"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = dm.NewResultRecord("echo hi", "hi\n", "abc-123")

type captured struct {
	mu          sync.Mutex
	method      string
	path        string
	contentType string
	body        []byte
	hits        int
}

func collector(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.method, c.path, c.contentType, c.body = r.Method, r.URL.Path, r.Header.Get("Content-Type"), body
		c.hits++
		c.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func hostPort(t *testing.T, srv *httptest.Server) (string, uint16) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, uint16(port)
}

func TestCollectorURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:9000/api/commands", CollectorURL("127.0.0.1", 9000))
	assert.Equal(t, "http://collector.local:80/api/commands", CollectorURL("collector.local", 80))
	assert.Equal(t, "http://[::1]:9000/api/commands", CollectorURL("::1", 9000))
}

func TestEncodeKeepsShellCharacters(t *testing.T) {
	payload, err := Encode(dm.ResultRecord{Command: "ls -l | grep <x> && y", Output: "a<b>\n", DeviceID: "d"})
	require.NoError(t, err)
	assert.Equal(t, `{"command":"ls -l | grep <x> && y","output":"a<b>\n","device_id":"d"}`, string(payload))
}

func TestHTTPReporterPostsJSON(t *testing.T) {
	srv, got := collector(t, http.StatusOK)
	host, port := hostPort(t, srv)

	r := NewHTTPReporter(host, port, 0, nil)
	require.NoError(t, r.Report(context.Background(), sample))

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/commands", got.path)
	assert.Equal(t, "application/json", got.contentType)
	assert.JSONEq(t, `{"command":"echo hi","output":"hi\n","device_id":"abc-123"}`, string(got.body))

	var fields map[string]string
	require.NoError(t, json.Unmarshal(got.body, &fields))
	assert.Len(t, fields, 3)
}

func TestHTTPReporterAcceptsAny2xx(t *testing.T) {
	srv, _ := collector(t, http.StatusAccepted)
	host, port := hostPort(t, srv)
	assert.NoError(t, NewHTTPReporter(host, port, 0, nil).Report(context.Background(), sample))
}

func TestHTTPReporterNon2xxIsStatusError(t *testing.T) {
	srv, got := collector(t, http.StatusInternalServerError)
	host, port := hostPort(t, srv)

	err := NewHTTPReporter(host, port, 0, nil).Report(context.Background(), sample)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, 1, got.hits, "no retry")
}

func TestHTTPReporterUnreachable(t *testing.T) {
	srv, _ := collector(t, http.StatusOK)
	host, port := hostPort(t, srv)
	srv.Close()

	err := NewHTTPReporter(host, port, time.Second, nil).Report(context.Background(), sample)
	require.Error(t, err)
	var se *StatusError
	assert.False(t, errors.As(err, &se))
}

func TestMultiAttemptsEveryReporter(t *testing.T) {
	var calls []string
	rec := func(name string, err error) Reporter {
		return Func(func(ctx context.Context, r dm.ResultRecord) error {
			calls = append(calls, name)
			return err
		})
	}
	first := errors.New("http down")
	third := errors.New("kafka down")

	err := Multi{rec("http", first), rec("mqtt", nil), rec("kafka", third)}.Report(context.Background(), sample)
	assert.Equal(t, []string{"http", "mqtt", "kafka"}, calls)
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, third)

	assert.NoError(t, Multi{rec("ok", nil)}.Report(context.Background(), sample))
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaReporter(t *testing.T) {
	w := &fakeWriter{}
	k := &KafkaReporter{writer: w, topic: "ham-results"}

	require.NoError(t, k.Report(context.Background(), sample))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "abc-123", string(w.msgs[0].Key))
	assert.JSONEq(t, `{"command":"echo hi","output":"hi\n","device_id":"abc-123"}`, string(w.msgs[0].Value))

	w.err = kafka.UnknownTopicOrPartition
	err := k.Report(context.Background(), sample)
	assert.ErrorIs(t, err, kafka.UnknownTopicOrPartition)
	assert.Contains(t, err.Error(), "ham-results")

	require.NoError(t, Multi{k}.Close())
	assert.True(t, w.closed)
}

type fakeToken struct {
	mqtt.Token
	done chan struct{}
	err  error
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type fakeMQTT struct {
	mqtt.Client
	topic   string
	qos     byte
	payload []byte
	token   *fakeToken
}

func (c *fakeMQTT) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topic, c.qos, c.payload = topic, qos, payload.([]byte)
	return c.token
}

func TestMQTTReporter(t *testing.T) {
	done := make(chan struct{})
	close(done)
	client := &fakeMQTT{token: &fakeToken{done: done}}
	m := newMQTTReporter(client, "ham/devices/{device_id}/commands", 1)

	require.NoError(t, m.Report(context.Background(), sample))
	assert.Equal(t, "ham/devices/abc-123/commands", client.topic)
	assert.Equal(t, byte(1), client.qos)
	assert.JSONEq(t, `{"command":"echo hi","output":"hi\n","device_id":"abc-123"}`, string(client.payload))

	client.token = &fakeToken{done: done, err: errors.New("not connected")}
	assert.Error(t, m.Report(context.Background(), sample))
}

func TestMQTTReporterHonoursContext(t *testing.T) {
	client := &fakeMQTT{token: &fakeToken{done: make(chan struct{})}}
	m := newMQTTReporter(client, "ham/results", 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Report(ctx, sample), context.Canceled)
}

type fakePublisher struct {
	channel string
	message interface{}
	err     error
}

func (p *fakePublisher) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	p.channel, p.message = channel, message
	return redis.NewIntResult(1, p.err)
}

func TestRedisReporter(t *testing.T) {
	p := &fakePublisher{}
	r := &RedisReporter{client: p, channel: "ham:results"}

	require.NoError(t, r.Report(context.Background(), sample))
	assert.Equal(t, "ham:results", p.channel)
	assert.JSONEq(t, `{"command":"echo hi","output":"hi\n","device_id":"abc-123"}`, string(p.message.([]byte)))

	p.err = errors.New("connection refused")
	assert.Error(t, r.Report(context.Background(), sample))
	assert.NoError(t, r.Close())
}

func TestNewRedisReporterBadURL(t *testing.T) {
	_, err := NewRedisReporter("not-a-url", "ham")
	assert.Error(t, err)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	down := errors.New("connection refused")
	next := Func(func(context.Context, dm.ResultRecord) error {
		calls++
		return down
	})
	b := NewBreaker(next, BreakerSettings{Name: "echo hi", MaxFailures: 3, OpenFor: time.Hour})

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Report(context.Background(), sample), down)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	assert.ErrorIs(t, b.Report(context.Background(), sample), ErrCircuitOpen)
	assert.Equal(t, 3, calls, "open circuit must not reach the reporter")
}

func TestBreakerHalfOpenTrialRequest(t *testing.T) {
	fail := true
	next := Func(func(context.Context, dm.ResultRecord) error {
		if fail {
			return errors.New("down")
		}
		return nil
	})
	b := NewBreaker(next, BreakerSettings{MaxFailures: 1, OpenFor: 20 * time.Millisecond})

	assert.Error(t, b.Report(context.Background(), sample))
	assert.Equal(t, gobreaker.StateOpen, b.State())

	time.Sleep(40 * time.Millisecond)
	fail = false
	assert.NoError(t, b.Report(context.Background(), sample))
	assert.Equal(t, gobreaker.StateClosed, b.State())
}
