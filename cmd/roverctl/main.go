// roverctl is the operator console: an interactive shell publishing
// commands to the rover over MQTT and reading back its telemetry.
package main

//go-build: CGO_ENABLED=0

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/tunnelworks/rover.go/pkg/comm/mqtt"
	"github.com/tunnelworks/rover.go/pkg/nav"
	"github.com/tunnelworks/rover.go/pkg/telemetry"
)

var (
	mqttURL        = "mqtt://localhost:1883/"
	commandTopic   = "rover/command"
	telemetryTopic = "rover/telemetry"
	evalOnly       bool
)

func init() {
	if val := os.Getenv("ROVER_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&commandTopic, "command-topic", commandTopic, "Command topic.")
	flag.StringVar(&telemetryTopic, "telemetry-topic", telemetryTopic, "Telemetry topic.")
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
}

const queueKey = "$queue"

func queueFrom(c *ishell.Context) *mqtt.Queue {
	return c.Get(queueKey).(*mqtt.Queue)
}

// sendOp publishes one operator command.
func sendOp(c *ishell.Context, op nav.Op) {
	payload, _ := json.Marshal(nav.Command{Op: op})
	token := queueFrom(c).Pub(commandTopic, payload)
	if token.WaitTimeout(time.Second); token.Error() != nil {
		c.Err(token.Error())
		return
	}
	c.Println("OK")
}

func opCmd(name, alias, help string, op nav.Op) *ishell.Cmd {
	cmd := &ishell.Cmd{
		Name: name,
		Help: help,
		Func: func(c *ishell.Context) {
			sendOp(c, op)
		},
	}
	if alias != "" {
		cmd.Aliases = []string{alias}
	}
	return cmd
}

var statusCmd = &ishell.Cmd{
	Name:    "status",
	Aliases: []string{"st"},
	Help:    "wait for the next telemetry record and print it",
	Func: func(c *ishell.Context) {
		q := queueFrom(c)
		recCh := make(chan telemetry.Record, 1)
		sub := q.Sub(telemetryTopic, func(topic string, payload []byte) {
			var rec telemetry.Record
			if json.Unmarshal(payload, &rec) == nil {
				select {
				case recCh <- rec:
				default:
				}
			}
		})
		defer sub.Close()
		select {
		case rec := <-recCh:
			c.Printf("[%s/%s] pos (%.2f, %.2f) heading %.3f distance %.2fm decision %s link_up %v\n",
				rec.Mode, rec.Phase, rec.Pose.X, rec.Pose.Y,
				rec.Pose.Heading, rec.DistanceM, rec.Decision, rec.LinkUp)
		case <-time.After(3 * time.Second):
			c.Err(fmt.Errorf("no telemetry within 3s"))
		}
	},
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
	defer q.Close()

	shell := ishell.New()
	shell.Set(queueKey, q)
	shell.SetPrompt("rover > ")
	for _, cmd := range []*ishell.Cmd{
		opCmd("origin", "o", "set the current pose as the origin", nav.OpSetOrigin),
		opCmd("mode", "m", "toggle manual/automatic mode", nav.OpToggleMode),
		opCmd("start", "", "start the tunnel run (automatic mode)", nav.OpStart),
		opCmd("forward", "f", "drive forward (manual mode)", nav.OpMoveForward),
		opCmd("backward", "b", "drive backward (manual mode)", nav.OpMoveBackward),
		opCmd("left", "l", "pivot left (manual mode)", nav.OpTurnLeft),
		opCmd("right", "r", "pivot right (manual mode)", nav.OpTurnRight),
		opCmd("stop", "s", "stop motion", nav.OpStop),
		opCmd("shutdown", "", "stop the rover daemon", nav.OpQuit),
		statusCmd,
	} {
		shell.AddCmd(cmd)
	}

	if args := flag.Args(); len(args) > 0 {
		if err := shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if evalOnly {
		log.Fatalln("command expected")
	}
	shell.Println("tunnel rover console: origin, mode, start, forward, backward, left, right, stop, status ('help' for details)")
	shell.Run()
}
