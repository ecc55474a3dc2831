package datamodels

// ResultRecord is one command result as delivered to the collector.
// The JSON shape is a flat object with exactly these three string fields.
type ResultRecord struct {
	Command  string `json:"command"`
	Output   string `json:"output"`
	DeviceID string `json:"device_id"`
}

func NewResultRecord(command, output, deviceID string) ResultRecord {
	return ResultRecord{Command: command, Output: output, DeviceID: deviceID}
}
