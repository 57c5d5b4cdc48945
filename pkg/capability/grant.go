// Package capability records the outcome of acquiring an input device or
// media stream.
package capability

import "fmt"

// Status is the result of a single acquisition attempt.
type Status int

const (
	Denied Status = iota
	Granted
)

func (s Status) String() string {
	if s == Granted {
		return "granted"
	}
	return "denied"
}

// Grant is what a component reports once it tried to open its device.
// A Denied grant always carries a reason.
type Grant struct {
	Name   string
	Status Status
	Reason string
}

// Allow builds a granted result for the named capability.
func Allow(name string) Grant {
	return Grant{Name: name, Status: Granted}
}

// Deny builds a denied result with a human readable reason.
func Deny(name string, reason string) Grant {
	return Grant{Name: name, Status: Denied, Reason: reason}
}

// DenyErr builds a denied result from an acquisition error.
func DenyErr(name string, err error) Grant {
	return Deny(name, err.Error())
}

func (g Grant) OK() bool {
	return g.Status == Granted
}

func (g Grant) String() string {
	if g.OK() {
		return fmt.Sprintf("%s: %s", g.Name, g.Status)
	}
	return fmt.Sprintf("%s: %s (%s)", g.Name, g.Status, g.Reason)
}

// Set holds the capability flags the frame loop consults every tick.
type Set struct {
	Audio  Grant
	Camera Grant
	Video  Grant
}

// Summary lists every grant, used for the startup log line.
func (s Set) Summary() []string {
	return []string{s.Audio.String(), s.Camera.String(), s.Video.String()}
}
