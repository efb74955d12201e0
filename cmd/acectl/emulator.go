package main

import (
	"sync"

	"github.com/muurk/acectl/internal/driver"
	"github.com/muurk/acectl/internal/transport"
)

// unitEmulator answers requests the way an idle unit with four loaded
// slots does. It backs --dry-run.
type unitEmulator struct {
	mu         sync.Mutex
	dryerTemp  int
	dryerMins  int
	feedAssist [driver.SlotCount]bool
}

func newEmulator() transport.Channel {
	e := &unitEmulator{}
	return transport.NewEmulator("emulator", e.handle)
}

func success(result any) map[string]any {
	resp := map[string]any{"code": 0, "msg": "success"}
	if result != nil {
		resp["result"] = result
	}
	return resp
}

func (e *unitEmulator) handle(method string, params map[string]any) any {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch method {
	case driver.MethodGetStatus:
		return success(e.status())

	case driver.MethodGetFilamentInfo:
		return success(filamentInfo(intParam(params, "slot")))

	case driver.MethodDrying:
		e.dryerTemp = intParam(params, "temp")
		e.dryerMins = intParam(params, "duration")
		return success(nil)

	case driver.MethodDryingStop:
		e.dryerTemp, e.dryerMins = 0, 0
		return success(nil)

	case driver.MethodStartFeedAssist, driver.MethodStopFeedAssist:
		if slot := intParam(params, "slot"); slot >= 0 && slot < driver.SlotCount {
			e.feedAssist[slot] = method == driver.MethodStartFeedAssist
		}
		return success(nil)

	case driver.MethodFeedFilament, driver.MethodUnwindFilament,
		driver.MethodStopFeedFilament, driver.MethodStopUnwindFilament,
		driver.MethodUpdateFeedingSpeed, driver.MethodUpdateUnwindingSpeed:
		return success(nil)

	default:
		return transport.ErrUnknownMethod
	}
}

func (e *unitEmulator) status() map[string]any {
	dryer := map[string]any{
		"status":      "stop",
		"target_temp": 0,
		"duration":    0,
		"remain_time": 0,
	}
	if e.dryerMins > 0 {
		dryer = map[string]any{
			"status":      "drying",
			"target_temp": e.dryerTemp,
			"duration":    e.dryerMins,
			"remain_time": e.dryerMins * 60,
		}
	}

	slots := make([]any, driver.SlotCount)
	for i := range slots {
		slots[i] = map[string]any{
			"index":       i,
			"status":      "ready",
			"sku":         "",
			"type":        "PLA",
			"color":       []int{0, 0, 0},
			"rfid":        1,
			"feed_assist": e.feedAssist[i],
		}
	}

	return map[string]any{
		"status":            "ready",
		"dryer_status":      dryer,
		"temp":              25,
		"enable_rfid":       1,
		"fan_speed":         driver.DryingFanSpeed,
		"feed_assist_count": 0,
		"cont_assist_time":  0.0,
		"slots":             slots,
	}
}

func filamentInfo(slot int) map[string]any {
	return map[string]any{
		"index":         slot,
		"sku":           "",
		"brand":         "",
		"type":          "PLA",
		"color":         []int{0, 0, 0},
		"extruder_temp": map[string]any{"min": 190, "max": 230},
		"hotbed_temp":   map[string]any{"min": 50, "max": 60},
		"diameter":      1.75,
	}
}

// intParam reads a numeric request parameter. Decoded JSON numbers are
// float64; -1 means missing.
func intParam(params map[string]any, name string) int {
	if v, ok := params[name].(float64); ok {
		return int(v)
	}
	return -1
}
