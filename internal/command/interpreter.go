package command

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hearthside/hearthside-core/internal/device"
)

// ErrUnrecognized indicates the text matched no command rule, or matched a
// rule whose target device type is not present in the home.
var ErrUnrecognized = errors.New("command: not recognised")

// UnrecognizedMessage is the fixed reply for any unrecognised command.
const UnrecognizedMessage = "Command not recognized. Please try again."

// Fan speed increment for "increase fan speed" style commands.
const fanSpeedStep = 20

// Action is a resolved command: the device to change, the patch to apply,
// and a human-readable description of what will happen.
type Action struct {
	DeviceID    string       `json:"device_id"`
	DeviceName  string       `json:"device_name"`
	Patch       device.Patch `json:"patch"`
	Description string       `json:"description"`
}

// Interpreter resolves free-form command text against the device registry.
// Rules are evaluated in a fixed order and the first rule that fully
// resolves wins, so behaviour is deterministic for any input.
type Interpreter struct {
	registry *device.Registry
}

// NewInterpreter creates an interpreter bound to the given registry.
func NewInterpreter(registry *device.Registry) *Interpreter {
	return &Interpreter{registry: registry}
}

var digitRun = regexp.MustCompile(`\d+`)

// firstNumber extracts the first maximal digit run from text. The second
// return value reports whether a run was found.
func firstNumber(text string) (int, bool) {
	run := digitRun.FindString(text)
	if run == "" {
		return 0, false
	}
	n, err := strconv.Atoi(run)
	if err != nil {
		return 0, false
	}
	return n, true
}

// rule matches lowered command text and resolves it to an action.
// resolve returns (nil, false) to decline and let later rules try, and
// (nil, true) when the rule fires but no suitable device exists.
type rule struct {
	matches func(lower string) bool
	resolve func(i *Interpreter, text, lower string) (*Action, bool)
}

func containsAll(lower string, subs ...string) bool {
	for _, s := range subs {
		if !strings.Contains(lower, s) {
			return false
		}
	}
	return true
}

// Rule order is significant: setpoint rules precede plain on/off rules for
// the same device type so "set AC to 22 degrees" is not consumed by a
// broader match.
var rules = []rule{
	{
		matches: func(l string) bool { return containsAll(l, "turn on", "lights") },
		resolve: func(i *Interpreter, _, _ string) (*Action, bool) {
			return i.action(device.TypeLight, device.Patch{IsOn: device.Bool(true)}, "Turned on lights"), true
		},
	},
	{
		matches: func(l string) bool { return containsAll(l, "turn off", "lights") },
		resolve: func(i *Interpreter, _, _ string) (*Action, bool) {
			return i.action(device.TypeLight, device.Patch{IsOn: device.Bool(false)}, "Turned off lights"), true
		},
	},
	{
		matches: func(l string) bool { return containsAll(l, "ac", "degrees") },
		resolve: func(i *Interpreter, text, _ string) (*Action, bool) {
			temp, ok := firstNumber(text)
			if !ok {
				return nil, false
			}
			return i.action(device.TypeAirConditioner,
				device.Patch{IsOn: device.Bool(true), TemperatureC: device.Int(temp)},
				fmt.Sprintf("Set AC to %d°C", temp)), true
		},
	},
	{
		matches: func(l string) bool { return containsAll(l, "turn on", "ac") },
		resolve: func(i *Interpreter, _, _ string) (*Action, bool) {
			return i.action(device.TypeAirConditioner, device.Patch{IsOn: device.Bool(true)}, "Turned on AC"), true
		},
	},
	{
		matches: func(l string) bool { return containsAll(l, "turn off", "ac") },
		resolve: func(i *Interpreter, _, _ string) (*Action, bool) {
			return i.action(device.TypeAirConditioner, device.Patch{IsOn: device.Bool(false)}, "Turned off AC"), true
		},
	},
	{
		matches: func(l string) bool { return containsAll(l, "heater", "degrees") },
		resolve: func(i *Interpreter, text, _ string) (*Action, bool) {
			temp, ok := firstNumber(text)
			if !ok {
				return nil, false
			}
			return i.action(device.TypeHeater,
				device.Patch{IsOn: device.Bool(true), TemperatureC: device.Int(temp)},
				fmt.Sprintf("Set heater to %d°C", temp)), true
		},
	},
	{
		matches: func(l string) bool { return containsAll(l, "turn on", "heater") },
		resolve: func(i *Interpreter, _, _ string) (*Action, bool) {
			return i.action(device.TypeHeater, device.Patch{IsOn: device.Bool(true)}, "Turned on heater"), true
		},
	},
	{
		matches: func(l string) bool { return containsAll(l, "turn off", "heater") },
		resolve: func(i *Interpreter, _, _ string) (*Action, bool) {
			return i.action(device.TypeHeater, device.Patch{IsOn: device.Bool(false)}, "Turned off heater"), true
		},
	},
	{
		matches: func(l string) bool { return strings.Contains(l, "fan") },
		resolve: func(i *Interpreter, _, lower string) (*Action, bool) {
			switch {
			case strings.Contains(lower, "turn on"):
				return i.action(device.TypeFan, device.Patch{IsOn: device.Bool(true)}, "Turned on fan"), true
			case strings.Contains(lower, "turn off"):
				return i.action(device.TypeFan, device.Patch{IsOn: device.Bool(false)}, "Turned off fan"), true
			case strings.Contains(lower, "increase"), strings.Contains(lower, "speed"):
				fan, err := i.registry.FirstOfType(device.TypeFan)
				if err != nil {
					return nil, true
				}
				level := fan.CurrentLevel() + fanSpeedStep
				if level > device.MaxLevel {
					level = device.MaxLevel
				}
				return &Action{
					DeviceID:    fan.ID,
					DeviceName:  fan.Name,
					Patch:       device.Patch{IsOn: device.Bool(true), Level: device.Int(level)},
					Description: "Increased fan speed",
				}, true
			default:
				return nil, true
			}
		},
	},
}

// action builds an Action against the earliest-registered device of the
// given type, or nil when no such device exists.
func (i *Interpreter) action(t device.Type, patch device.Patch, description string) *Action {
	d, err := i.registry.FirstOfType(t)
	if err != nil {
		return nil
	}
	return &Action{
		DeviceID:    d.ID,
		DeviceName:  d.Name,
		Patch:       patch,
		Description: description,
	}
}

// Interpret resolves command text to an action. Matching is
// case-insensitive. A rule that matches on keywords but cannot extract a
// required number declines, and later rules still get a chance; a rule that
// fires against an absent device type fails the whole command.
func (i *Interpreter) Interpret(text string) (*Action, error) {
	lower := strings.ToLower(text)

	for _, r := range rules {
		if !r.matches(lower) {
			continue
		}
		act, fired := r.resolve(i, text, lower)
		if !fired {
			continue
		}
		if act == nil {
			return nil, ErrUnrecognized
		}
		return act, nil
	}
	return nil, ErrUnrecognized
}
