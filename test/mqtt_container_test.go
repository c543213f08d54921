package test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/haulplan/haulplan/core/board"
	"github.com/haulplan/haulplan/core/realtime"
	"github.com/haulplan/haulplan/infra/logger"
	"github.com/haulplan/haulplan/infra/mqttchan"
	"github.com/haulplan/haulplan/internal/eventbus"
)

func waitForMQTTReady(broker string, timeout time.Duration) error {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("probe")
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		cli := paho.NewClient(opts)
		token := cli.Connect()
		token.Wait()
		if token.Error() == nil {
			cli.Disconnect(100)
			return nil
		}
		lastErr = token.Error()
		time.Sleep(100 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for broker")
	}
	return lastErr
}

func startMosquitto(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	conf := `listener 1883
allow_anonymous true
persistence false
log_dest stdout
log_type error
log_type warning
`
	dir := t.TempDir()
	path := filepath.Join(dir, "mosquitto.conf")
	if err := os.WriteFile(path, []byte(conf), 0644); err != nil {
		t.Fatalf("write conf: %v", err)
	}

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{
			{
				HostFilePath:      path,
				ContainerFilePath: "/mosquitto/config/mosquitto.conf",
				FileMode:          0644,
			},
		},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("container start: %v", err)
	}
	host, err := cont.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := cont.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())
	if err := waitForMQTTReady(broker, 5*time.Second); err != nil {
		t.Logf("mosquitto not ready at %s: %v", broker, err)
		t.Skip("Mosquitto not ready after retries")
	}
	return cont, broker
}

func waitForItem(store board.Store, id string, timeout time.Duration) (board.Item, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if item, ok := store.Get(id); ok {
			return item, true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return board.Item{}, false
}

func TestBoardSyncWithMQTTContainer(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx := context.Background()

	cont, broker := startMosquitto(ctx, t)
	defer func() { _ = cont.Terminate(ctx) }()

	pubOpts := paho.NewClientOptions().AddBroker(broker).SetClientID("backend-sim")
	pub := paho.NewClient(pubOpts)
	if token := pub.Connect(); token.Wait() && token.Error() != nil {
		t.Fatalf("publisher connect: %v", token.Error())
	}
	defer pub.Disconnect(100)

	store := board.NewMemoryStore()
	defer store.Close()
	bus := eventbus.New()
	defer bus.Close()
	log := logger.NopLogger{}

	transport := mqttchan.New(mqttchan.Config{
		Broker:   broker,
		ClientID: "board-under-test",
		Topic:    "board/events",
	}, log)
	client := realtime.New(realtime.Config{
		KeepaliveSeconds: 1,
		ReconnectDelayMS: 200,
		MaxAttempts:      5,
		Transport:        "mqtt",
	}, transport, store, bus, nil, log)

	client.Start(ctx)
	defer client.Close()

	deadline := time.Now().Add(5 * time.Second)
	for client.State() != realtime.StateConnected {
		if time.Now().After(deadline) {
			t.Fatalf("client never connected, state: %s", client.State())
		}
		time.Sleep(50 * time.Millisecond)
	}

	frame := []byte(`{"event":"order_updated","action":"created","order":{"id":"ord-77","date":"2026-03-02","truck":"T4","sequence":1000}}`)
	if token := pub.Publish("board/events", 0, false, frame); token.Wait() && token.Error() != nil {
		t.Fatalf("publish: %v", token.Error())
	}

	item, ok := waitForItem(store, "ord-77", 5*time.Second)
	if !ok {
		t.Fatal("published event never reached the board store")
	}
	if item.Container.Date != "2026-03-02" || item.Container.Truck != "T4" {
		t.Errorf("unexpected container: %+v", item.Container)
	}
	if item.Seq != 1000 {
		t.Errorf("unexpected sequence: %d", item.Seq)
	}

	// the keepalive ticker publishes pings on the ping topic
	pings := make(chan []byte, 4)
	if token := pub.Subscribe("board/ping", 0, func(_ paho.Client, m paho.Message) {
		select {
		case pings <- m.Payload():
		default:
		}
	}); token.Wait() && token.Error() != nil {
		t.Fatalf("subscribe ping: %v", token.Error())
	}
	select {
	case data := <-pings:
		if string(data) != `{"type":"ping"}` {
			t.Errorf("unexpected ping payload: %s", data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no keepalive ping observed")
	}
}
