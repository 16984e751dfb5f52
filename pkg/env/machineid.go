package env

import "github.com/denisbrodbeck/machineid"

var machineIDFunc = machineid.ProtectedID

// MachineID retrieves an ID identifying the machine, scoped to this
// application. It's "secplus" if the machine has no ID.
func MachineID() string {
	id, err := machineIDFunc("secplus")
	if err != nil || id == "" {
		return "secplus"
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}
