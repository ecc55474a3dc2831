package main

import (
	"github.com/andrej220/hamagent/internal/lg"
	"github.com/spf13/pflag"
)

const SERVICENAME = "ham-agent"
const CONFIGFILENAME = "config.json"
const PROJECTNAME = "HAM"

// Options are the command line settings of the agent.
type Options struct {
	ConfigPath  string
	ConfigStore string

	MongoURI        string
	MongoDB         string
	MongoCollection string
	MongoID         string

	DeviceID     string
	DeviceIDFile string

	MetricsAddr string
	Watch       bool

	Log lg.Config
}

func NewOptions() *Options {
	return &Options{Log: lg.Config{ServiceName: SERVICENAME}}
}

func (o *Options) BindFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ConfigPath, "config", "c", CONFIGFILENAME, "path to the agent config (JSON, or YAML by extension)")
	fs.StringVar(&o.ConfigStore, "config-store", "file", "where the config lives: file or mongo")

	fs.StringVar(&o.MongoURI, "mongo-uri", "mongodb://localhost:27017", "MongoDB connection string")
	fs.StringVar(&o.MongoDB, "mongo-db", "ham", "MongoDB database")
	fs.StringVar(&o.MongoCollection, "mongo-collection", "agent_configs", "MongoDB collection")
	fs.StringVar(&o.MongoID, "mongo-id", "", "config document _id")

	fs.StringVar(&o.DeviceID, "device-id", "", "use this device id instead of the host's")
	fs.StringVar(&o.DeviceIDFile, "device-id-file", "", "state file holding a generated device id when the host has none")

	fs.StringVar(&o.MetricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address")
	fs.BoolVar(&o.Watch, "watch", false, "reload the config file when it changes")

	lg.BindFlags(fs, &o.Log)
}
