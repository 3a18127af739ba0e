package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	clientErrors    uint64
	totalDurationMs uint64

	calculations        uint64
	calculationFailures uint64
	payslipsGenerated   uint64
	periodsValidated    uint64
	periodsLocked       uint64
	lastCalculationMs   uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	} else if status >= 400 {
		atomic.AddUint64(&c.clientErrors, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// RecordCalculation counts one period calculation and the payslips it wrote.
func (c *Collector) RecordCalculation(payslips int, duration time.Duration, err error) {
	if err != nil {
		atomic.AddUint64(&c.calculationFailures, 1)
		return
	}
	atomic.AddUint64(&c.calculations, 1)
	atomic.AddUint64(&c.payslipsGenerated, uint64(payslips))
	atomic.StoreUint64(&c.lastCalculationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) RecordValidated() {
	atomic.AddUint64(&c.periodsValidated, 1)
}

func (c *Collector) RecordLocked() {
	atomic.AddUint64(&c.periodsLocked, 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	clientErrs := atomic.LoadUint64(&c.clientErrors)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":            total,
		"errorsTotal":              errs,
		"clientErrorsTotal":        clientErrs,
		"avgDurationMs":            avg,
		"totalDurationMs":          totalMs,
		"calculationsTotal":        atomic.LoadUint64(&c.calculations),
		"calculationFailuresTotal": atomic.LoadUint64(&c.calculationFailures),
		"payslipsGeneratedTotal":   atomic.LoadUint64(&c.payslipsGenerated),
		"periodsValidatedTotal":    atomic.LoadUint64(&c.periodsValidated),
		"periodsLockedTotal":       atomic.LoadUint64(&c.periodsLocked),
		"lastCalculationMs":        atomic.LoadUint64(&c.lastCalculationMs),
	}
}
