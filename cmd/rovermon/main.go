// rovermon tails the rover's MQTT traffic: telemetry records are
// printed one line each, anything else raw.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/tunnelworks/rover.go/pkg/comm/mqtt"
	"github.com/tunnelworks/rover.go/pkg/telemetry"
)

var (
	mqttURL = "mqtt://localhost:1883/"
)

func init() {
	if val := os.Getenv("ROVER_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}

	q.Sub("#", func(topic string, payload []byte) {
		var rec telemetry.Record
		if err := json.Unmarshal(payload, &rec); err == nil && rec.At.Unix() > 0 {
			env := "-"
			if rec.Env != nil {
				env = "up"
			}
			log.Printf("%s: #%d [%s/%s] pos (%.2f, %.2f) dist %.2fm decision %s env %s",
				topic, rec.Seq, rec.Mode, rec.Phase,
				rec.Pose.X, rec.Pose.Y, rec.DistanceM, rec.Decision, env)
			return
		}
		log.Printf("%s: %s", topic, string(payload))
	})
	<-(chan struct{})(nil)
}
