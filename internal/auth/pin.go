package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPinTooShort    = errors.New("pin must be at least 4 digits")
	ErrUnknownDevice  = errors.New("unknown device")
	ErrPinMismatch    = errors.New("pin does not match")
	ErrDeviceDisabled = errors.New("device is disabled")
)

const (
	bcryptCost   = 12
	minPinLength = 4
)

// HashPin hashes an operator PIN using bcrypt.
func HashPin(pin string) (string, error) {
	if len(pin) < minPinLength {
		return "", ErrPinTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcryptCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPin compares a PIN with its hash.
func CheckPin(pin, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin))
	return err == nil
}

type device struct {
	pinHash  string
	role     string
	disabled bool
}

// DeviceRegistry holds the registers allowed to open a session, keyed by
// device id, each with a bcrypt-hashed operator PIN.
type DeviceRegistry struct {
	mu      sync.RWMutex
	devices map[string]device
}

func NewDeviceRegistry() *DeviceRegistry {
	return &DeviceRegistry{devices: make(map[string]device)}
}

// Register stores a device with a hashed PIN. Re-registering overwrites
// the previous PIN.
func (r *DeviceRegistry) Register(deviceID, pin, role string) error {
	hash, err := HashPin(pin)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[deviceID] = device{pinHash: hash, role: role}
	return nil
}

// RegisterHashed stores a device with an already-hashed PIN, e.g. loaded
// from configuration.
func (r *DeviceRegistry) RegisterHashed(deviceID, pinHash, role string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[deviceID] = device{pinHash: pinHash, role: role}
}

// Disable blocks a device from opening new sessions.
func (r *DeviceRegistry) Disable(deviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.devices[deviceID]; ok {
		d.disabled = true
		r.devices[deviceID] = d
	}
}

// Role returns the role of a registered device.
func (r *DeviceRegistry) Role(deviceID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[deviceID]
	if !ok || d.disabled {
		return "", false
	}
	return d.role, true
}

// Authenticate checks a device's PIN and returns its role.
func (r *DeviceRegistry) Authenticate(deviceID, pin string) (string, error) {
	r.mu.RLock()
	d, ok := r.devices[deviceID]
	r.mu.RUnlock()

	if !ok {
		// Burn a comparison anyway so unknown and known devices take
		// the same time.
		_ = CheckPin(pin, "$2a$12$0000000000000000000000000000000000000000000000000000")
		return "", ErrUnknownDevice
	}
	if d.disabled {
		return "", ErrDeviceDisabled
	}
	if !CheckPin(pin, d.pinHash) {
		return "", ErrPinMismatch
	}
	return d.role, nil
}
