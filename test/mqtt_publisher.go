package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// SensorPayload matches what the campus simulators publish.
type SensorPayload struct {
	Value     float64                `json:"value"`
	Unit      string                 `json:"unit"`
	Timestamp string                 `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// SensorConfig describes one simulated sensor.
type SensorConfig struct {
	DeviceID string
	Metric   string
	Unit     string
	Min      float64
	Max      float64
}

var sensors = []SensorConfig{
	{DeviceID: "temp-sensor-01", Metric: "temperature", Unit: "celsius", Min: 20, Max: 35},
	{DeviceID: "temp-sensor-02", Metric: "temperature", Unit: "celsius", Min: 18, Max: 30},
	{DeviceID: "humidity-sensor-01", Metric: "humidity", Unit: "percent", Min: 30, Max: 70},
	{DeviceID: "energy-meter-01", Metric: "energy", Unit: "kwh", Min: 0.5, Max: 4.5},
}

func main() {
	broker := flag.String("broker", "tcp://localhost:1883", "MQTT broker address")
	username := flag.String("username", "", "MQTT username")
	password := flag.String("password", "", "MQTT password")
	namespace := flag.String("namespace", "campus", "topic namespace")
	mode := flag.String("mode", "continuous", "run mode: single, continuous")
	interval := flag.Duration("interval", 5*time.Second, "publish interval in continuous mode")
	flag.Parse()

	opts := paho.NewClientOptions()
	opts.AddBroker(*broker)
	opts.SetClientID(fmt.Sprintf("campus-sim-%d", time.Now().Unix()))
	if *username != "" {
		opts.SetUsername(*username)
		opts.SetPassword(*password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		fmt.Printf("connection lost: %v\n", err)
	})

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		fmt.Printf("failed to connect to MQTT broker: %v\n", token.Error())
		os.Exit(1)
	}
	fmt.Printf("connected to MQTT broker: %s\n", *broker)

	switch *mode {
	case "single":
		publishRound(client, *namespace)
	case "continuous":
		publishContinuous(client, *namespace, *interval)
	default:
		fmt.Println("unknown run mode, use single or continuous")
		os.Exit(1)
	}

	client.Disconnect(250)
}

// publishRound sends one reading per simulated sensor.
func publishRound(client paho.Client, namespace string) {
	for _, s := range sensors {
		payload := SensorPayload{
			Value:     round2(s.Min + rand.Float64()*(s.Max-s.Min)),
			Unit:      s.Unit,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Metadata: map[string]interface{}{
				"battery": 70 + rand.Intn(31),
				"signal":  -60 + rand.Intn(31),
			},
		}

		data, err := json.Marshal(payload)
		if err != nil {
			fmt.Printf("failed to serialize payload: %v\n", err)
			continue
		}

		topic := fmt.Sprintf("%s/%s/%s", namespace, s.DeviceID, s.Metric)
		token := client.Publish(topic, 1, false, data)
		token.Wait()
		if err := token.Error(); err != nil {
			fmt.Printf("failed to publish to %s: %v\n", topic, err)
			continue
		}
		fmt.Printf("published to %s: %.2f %s\n", topic, payload.Value, payload.Unit)
	}
}

// publishContinuous sends rounds until interrupted.
func publishContinuous(client paho.Client, namespace string, interval time.Duration) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	publishRound(client, namespace)
	for {
		select {
		case <-ticker.C:
			publishRound(client, namespace)
		case <-sigChan:
			fmt.Println("stopping publisher")
			return
		}
	}
}

func round2(v float64) float64 {
	return float64(int(v*100)) / 100
}
