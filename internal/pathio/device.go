package pathio

import (
	"encoding/json"
	"os"
	"time"

	"github.com/barqly/barqly-vault/internal/domain"
	"github.com/barqly/barqly-vault/internal/vaulterr"
)

// DeviceIdentity is the per-installation document persisted at
// DeviceIdentityPath: a machine id generated once and never reused, plus
// a human-editable label stamped into every manifest's device_provenance.
type DeviceIdentity struct {
	MachineId    domain.MachineId `json:"machine_id"`
	MachineLabel string           `json:"machine_label"`
	CreatedAt    string           `json:"created_at"`
}

// LoadOrCreateDeviceIdentity reads the device identity document, creating
// and persisting a fresh one (with a freshly generated MachineId) if
// absent. defaultLabel is used only on first creation.
func LoadOrCreateDeviceIdentity(defaultLabel string) (DeviceIdentity, error) {
	path, err := DeviceIdentityPath()
	if err != nil {
		return DeviceIdentity{}, err
	}

	data, err := os.ReadFile(path)
	if err == nil {
		var id DeviceIdentity
		if jsonErr := json.Unmarshal(data, &id); jsonErr != nil {
			return DeviceIdentity{}, vaulterr.NewPersistenceError("load", path, jsonErr)
		}
		return id, nil
	}
	if !os.IsNotExist(err) {
		return DeviceIdentity{}, vaulterr.NewPersistenceError("load", path, err)
	}

	id := DeviceIdentity{
		MachineId:    domain.NewMachineId(),
		MachineLabel: defaultLabel,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	data, err = json.MarshalIndent(id, "", "  ")
	if err != nil {
		return DeviceIdentity{}, vaulterr.NewPersistenceError("encode", path, err)
	}
	if err := WriteFileAtomic(path, data, 0600); err != nil {
		return DeviceIdentity{}, vaulterr.NewPersistenceError("save", path, err)
	}
	return id, nil
}
