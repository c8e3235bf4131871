package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"encoding/json"
	"flag"

	"github.com/golang/glog"

	"github.com/tunnelworks/rover.go/pkg/avoid"
	"github.com/tunnelworks/rover.go/pkg/bridge"
	"github.com/tunnelworks/rover.go/pkg/comm/mqtt"
	"github.com/tunnelworks/rover.go/pkg/envlink"
	fx "github.com/tunnelworks/rover.go/pkg/framework"
	"github.com/tunnelworks/rover.go/pkg/nav"
	"github.com/tunnelworks/rover.go/pkg/rover"
	"github.com/tunnelworks/rover.go/pkg/store"
	"github.com/tunnelworks/rover.go/pkg/telemetry"
	"github.com/tunnelworks/rover.go/pkg/ultrasonic"
	"github.com/tunnelworks/rover.go/pkg/web"
)

var (
	configFn = flag.String("config", "", "Configuration file (YAML).")
	simMode  = flag.Bool("sim", false, "Use the simulated bridge instead of the serial port.")
)

func main() {
	flag.Parse()
	defer glog.Flush()
	if err := run(); err != nil {
		glog.Exit(err)
	}
}

func run() error {
	cfg := rover.Defaults()
	if *configFn != "" {
		var err error
		if cfg, err = rover.Load(*configFn); err != nil {
			return err
		}
	}
	id := cfg.RoverID()
	glog.Infof("starting %s", id)

	// Drive and sensor hardware.
	var actuator nav.Actuator
	var sensors map[ultrasonic.Position]ultrasonic.Sensor
	if *simMode || cfg.Serial.Device == "" {
		glog.Info("using simulated bridge")
		sim := bridge.NewSim()
		actuator, sensors = sim, sim.Sensors()
	} else {
		ser, err := bridge.OpenSerial(cfg.Serial.Device, cfg.Serial.Baud)
		if err != nil {
			return err
		}
		defer ser.Close()
		actuator, sensors = ser, ser.Sensors()
	}
	array := ultrasonic.NewArray(sensors)
	array.Timeout = cfg.SensorTimeout()
	array.MaxRangeCM = cfg.Sensors.MaxRangeCM

	hub := telemetry.NewHub(cfg.Hub.Capacity)

	runner := fx.NewRunner().HandleSignals()
	ctx, cancel := context.WithCancel(runner.Context)
	runner.Context = ctx
	defer cancel()

	loop := fx.NewLoop()
	loop.Interval = cfg.Tick()

	// Peer link and remote surfaces, all optional.
	var env envlink.Source
	if cfg.MQTT.URL != "" {
		opts, prefix, err := mqtt.ClientOptionsFromURL(cfg.MQTT.URL)
		if err != nil {
			return err
		}
		if opts.ClientID == "" {
			opts.SetClientID(id)
		}
		opts.SetConnectRetry(true)
		q := mqtt.NewQueue(opts, prefix)
		q.Connect()
		defer q.Close()

		link := envlink.NewMQTTLink(q, cfg.MQTT.EnvTopic)
		link.Staleness = cfg.Staleness()
		env = link
		loop.AddRunnable(link)
		loop.AddRunnable(&telemetry.Forwarder{
			Hub: hub, Queue: q, Topic: cfg.MQTT.TelemetryTopic,
		})

		cmdSub := q.Sub(cfg.MQTT.CommandTopic, func(topic string, payload []byte) {
			var cmd nav.Command
			if err := json.Unmarshal(payload, &cmd); err != nil || !cmd.Valid() {
				glog.Warningf("bad command on %s: %q", topic, payload)
				return
			}
			glog.Infof("mqtt: command %s", cmd.Op)
			loop.PostMessage(cmd)
			loop.TriggerNext()
		})
		defer cmdSub.Close()
	}

	side, _ := cfg.Side()
	machine, err := nav.NewMachine(nav.MachineConfig{
		Array:    array,
		Actuator: actuator,
		Policy: avoid.Policy{
			ThresholdCM: cfg.Obstacle.ThresholdCM,
			DefaultSide: side,
		},
		Env:              env,
		Hub:              hub,
		Calibration:      cfg.NavCalibration(),
		TunnelLengthM:    cfg.Tunnel.LengthM,
		ReturnToleranceM: cfg.Tunnel.ReturnToleranceM,
		QuitFunc:         cancel,
	})
	if err != nil {
		return err
	}
	loop.Add(machine)

	if cfg.HTTP.Addr != "" {
		loop.AddRunnable(web.NewServer(cfg.HTTP.Addr, hub, func(cmd nav.Command) {
			loop.PostMessage(cmd)
			loop.TriggerNext()
		}))
	}
	if cfg.DB.Path != "" {
		sink, err := store.Open(cfg.DB.Path, hub)
		if err != nil {
			return err
		}
		sink.BatchSize = cfg.DB.BatchSize
		sink.FlushEvery = cfg.FlushEvery()
		loop.AddRunnable(sink)
	}

	runner.Go(loop)
	err = runner.Wait()

	// Whatever took the loop down, leave the motors stopped.
	if herr := machine.Halt(); herr != nil {
		glog.Errorf("halt: %v", herr)
	}
	if err != nil {
		return err
	}
	glog.Infof("%s stopped", id)
	return nil
}
