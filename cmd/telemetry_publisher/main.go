package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type locationMessage struct {
	DeviceID  string  `json:"device_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Speed     float64 `json:"speed"`
	Heading   float64 `json:"heading"`
	Accuracy  float64 `json:"accuracy"`
	Timestamp int64   `json:"timestamp"`
}

type statusMessage struct {
	DeviceID string `json:"device_id"`
	Status   string `json:"status"`
}

type simulatedDevice struct {
	id      string
	lat     float64
	lon     float64
	heading float64
	online  bool
}

// step moves the device roughly speed metres along a slowly drifting heading.
func (d *simulatedDevice) step(speed float64) {
	d.heading += (rand.Float64() - 0.5) * 30
	if d.heading < 0 {
		d.heading += 360
	} else if d.heading >= 360 {
		d.heading -= 360
	}
	const metresPerDegree = 111320.0
	rad := d.heading * math.Pi / 180
	d.lat += speed * math.Cos(rad) / metresPerDegree
	d.lon += speed * math.Sin(rad) / metresPerDegree
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <interval_seconds> [device_count]\n", os.Args[0])
		os.Exit(1)
	}

	intervalSec, err := strconv.Atoi(os.Args[1])
	if err != nil || intervalSec <= 0 {
		fmt.Fprintf(os.Stderr, "error: interval must be a positive integer\n")
		os.Exit(1)
	}

	count := 3
	if len(os.Args) > 2 {
		count, err = strconv.Atoi(os.Args[2])
		if err != nil || count <= 0 {
			fmt.Fprintf(os.Stderr, "error: device_count must be a positive integer\n")
			os.Exit(1)
		}
	}

	broker := "tcp://localhost:1883"
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		broker = v
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("apadbandhan-mock-publisher")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("mqtt connect: %v", token.Error())
	}
	defer client.Disconnect(250)

	devices := make([]*simulatedDevice, count)
	for i := range devices {
		devices[i] = &simulatedDevice{
			id:      primitive.NewObjectID().Hex(),
			lat:     20.5937 + (rand.Float64()-0.5)*0.2,
			lon:     78.9629 + (rand.Float64()-0.5)*0.2,
			heading: rand.Float64() * 360,
			online:  true,
		}
		publish(client, "status", devices[i].id, statusMessage{DeviceID: devices[i].id, Status: "online"})
	}

	log.Printf("connected to %s, publishing every %ds for %d devices", broker, intervalSec, count)

	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		d := devices[rand.Intn(len(devices))]

		// 5% chance to flip the device's connectivity
		if rand.Float64() < 0.05 {
			d.online = !d.online
			status := "offline"
			if d.online {
				status = "online"
			}
			publish(client, "status", d.id, statusMessage{DeviceID: d.id, Status: status})
			continue
		}
		if !d.online {
			continue
		}

		speed := 5 + rand.Float64()*15
		d.step(speed * float64(intervalSec))

		publish(client, "location", d.id, locationMessage{
			DeviceID:  d.id,
			Latitude:  d.lat,
			Longitude: d.lon,
			Speed:     speed,
			Heading:   d.heading,
			Accuracy:  5 + rand.Float64()*20,
			Timestamp: time.Now().Unix(),
		})
	}
}

func publish(client mqtt.Client, kind, deviceID string, msg any) {
	payload, _ := json.Marshal(msg)
	topic := fmt.Sprintf("/fleet/device/%s/%s", deviceID, kind)

	token := client.Publish(topic, 1, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		log.Printf("publish to %s: %v", topic, err)
		return
	}
	log.Printf("published to %s: %s", topic, payload)
}
