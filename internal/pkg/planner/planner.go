package planner

import (
	"math"
	"time"

	"github.com/danwue/elekter/internal/pkg/config"
	"github.com/danwue/elekter/internal/pkg/model"
)

// Plan computes the on/off decision for every slot of the table. It is
// deterministic and never fails for validated config.
//
// Slots priced at or below the threshold start out on. When ratio_max is
// set, every sliding window keeps at most floor(ratio_max*len) on slots,
// dropping the most expensive first. When ratio is set, remaining window
// deficits are resolved jointly: repeatedly pick the window with the
// largest deficit (earliest start on ties) and turn on its cheapest off
// slot (earliest on ties), until every window holds ceil(ratio*len) on
// slots. The minimum constraint runs last, so it wins when the two
// ratios conflict.
func Plan(table model.PriceTable, dev config.Device) model.Plan {
	plan := make(model.Plan, len(table))
	if len(table) == 0 {
		return plan
	}

	for i, p := range table {
		plan[i] = p.Value <= *dev.Threshold
	}

	if dev.RatioMax != nil {
		trimExcess(table, plan, *dev.RatioMax, windowLen(table, dev))
	}
	if dev.Ratio != nil {
		raiseDeficits(table, plan, *dev.Ratio, windowLen(table, dev))
	}
	return plan
}

// windowLen converts the device's window into a slot count; an absent
// window spans the whole day.
func windowLen(table model.PriceTable, dev config.Device) int {
	if dev.Window == nil {
		return len(table)
	}
	return table.WindowSlots(time.Duration(*dev.Window))
}

// trimExcess enforces the per-window on-count cap by turning off the most
// expensive on slots of each over-full window.
func trimExcess(table model.PriceTable, plan model.Plan, ratioMax float64, wlen int) {
	allowed := int(math.Floor(ratioMax * float64(wlen)))
	for s := 0; s+wlen <= len(plan); s++ {
		for plan.OnCount(s, s+wlen) > allowed {
			plan[dearestOn(table, plan, s, s+wlen)] = false
		}
	}
}

// raiseDeficits turns on additional slots until every sliding window
// holds at least ceil(ratio*wlen) on slots. Each activation targets the
// currently worst window, so one cheap slot can satisfy several
// overlapping windows at once. The loop terminates: each pass turns on
// one slot, deficits never grow, and required never exceeds wlen.
func raiseDeficits(table model.PriceTable, plan model.Plan, ratio float64, wlen int) {
	required := int(math.Ceil(ratio * float64(wlen)))
	if required == 0 {
		return
	}
	for {
		start, deficit := worstWindow(plan, required, wlen)
		if deficit == 0 {
			return
		}
		slot := cheapestOff(table, plan, start, start+wlen)
		if slot < 0 {
			return
		}
		plan[slot] = true
	}
}

func worstWindow(plan model.Plan, required, wlen int) (start, deficit int) {
	for s := 0; s+wlen <= len(plan); s++ {
		if d := required - plan.OnCount(s, s+wlen); d > deficit {
			start, deficit = s, d
		}
	}
	return start, deficit
}

func cheapestOff(table model.PriceTable, plan model.Plan, from, to int) int {
	best := -1
	for i := from; i < to; i++ {
		if plan[i] {
			continue
		}
		if best < 0 || table[i].Value < table[best].Value {
			best = i
		}
	}
	return best
}

func dearestOn(table model.PriceTable, plan model.Plan, from, to int) int {
	worst := -1
	for i := from; i < to; i++ {
		if !plan[i] {
			continue
		}
		if worst < 0 || table[i].Value > table[worst].Value {
			worst = i
		}
	}
	return worst
}
