// Package metrics exports every numeric field of a Mercury reading as a
// Prometheus gauge, labelled by (imei, mercury_id) plus whatever
// sub-label a field needs (phase, phase_pair, input_id, sensor_id).
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/galileosky/mercury-gateway/pkg/log"
)

// Exporter owns the registry and every gauge vec the gateway updates.
type Exporter struct {
	registry *prometheus.Registry

	enterVoltage *prometheus.GaugeVec
	temperature  *prometheus.GaugeVec
	status       *prometheus.GaugeVec
	frequency    *prometheus.GaugeVec
	voltage      *prometheus.GaugeVec
	current      *prometheus.GaugeVec
	angle        *prometheus.GaugeVec
	activePower  *prometheus.GaugeVec
	activeEnergy *prometheus.GaugeVec
	powerFactor  *prometheus.GaugeVec
	distortion   *prometheus.GaugeVec
}

// New registers every gauge vec against its own fresh registry so tests
// can create multiple exporters without colliding on the global one.
func New() *Exporter {
	reg := prometheus.NewRegistry()
	e := &Exporter{
		enterVoltage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "galileosky_enter_voltage", Help: "Analog input voltage (mV)",
		}, []string{"imei", "mercury_id", "input_id"}),
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "galileosky_temperature", Help: "Thermometer reading (C)",
		}, []string{"imei", "mercury_id", "sensor_id"}),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "galileosky_mercury_status", Help: "Mercury meter status byte",
		}, []string{"imei", "mercury_id"}),
		frequency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "galileosky_mercury_frequency", Help: "Grid frequency (Hz)",
		}, []string{"imei", "mercury_id"}),
		voltage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "galileosky_mercury_voltage", Help: "Phase voltage (V)",
		}, []string{"imei", "mercury_id", "phase"}),
		current: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "galileosky_mercury_current", Help: "Phase current (A)",
		}, []string{"imei", "mercury_id", "phase"}),
		angle: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "galileosky_mercury_angle", Help: "Phase angle (degrees)",
		}, []string{"imei", "mercury_id", "phase_pair"}),
		activePower: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "galileosky_mercury_active_power", Help: "Active power (kW)",
		}, []string{"imei", "mercury_id", "phase"}),
		activeEnergy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "galileosky_mercury_active_energy_fwd", Help: "Cumulative forward active energy (kWh)",
		}, []string{"imei", "mercury_id"}),
		powerFactor: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "galileosky_mercury_power_factor", Help: "Power factor",
		}, []string{"imei", "mercury_id", "phase"}),
		distortion: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "galileosky_mercury_distortion", Help: "Harmonic distortion (%)",
		}, []string{"imei", "mercury_id", "phase"}),
	}

	e.registry = reg
	reg.MustRegister(
		e.enterVoltage, e.temperature, e.status, e.frequency, e.voltage,
		e.current, e.angle, e.activePower, e.activeEnergy, e.powerFactor, e.distortion,
	)
	return e
}

// Update applies a freshly built Mercury record to every gauge it
// covers. Called synchronously right after the record builder runs and
// before any sink is invoked, so metrics reflect the latest reading even
// if sinks are backed up.
func (e *Exporter) Update(imei, mercuryID string, record map[string]any) {
	if v, ok := asFloat(record["galileosky_mercury_state"]); ok {
		e.status.WithLabelValues(imei, mercuryID).Set(v)
	}
	if v, ok := asFloat(record["galileosky_mercury_f"]); ok {
		e.frequency.WithLabelValues(imei, mercuryID).Set(v)
	}

	for phase, key := range map[string]string{"1": "galileosky_mercury_u1", "2": "galileosky_mercury_u2", "3": "galileosky_mercury_u3"} {
		if v, ok := asFloat(record[key]); ok {
			e.voltage.WithLabelValues(imei, mercuryID, phase).Set(v)
		}
	}
	for phase, key := range map[string]string{"1": "galileosky_mercury_i1", "2": "galileosky_mercury_i2", "3": "galileosky_mercury_i3"} {
		if v, ok := asFloat(record[key]); ok {
			e.current.WithLabelValues(imei, mercuryID, phase).Set(v)
		}
	}
	for pair, key := range map[string]string{"1-2": "galileosky_mercury_a12", "2-3": "galileosky_mercury_a23", "1-3": "galileosky_mercury_a13"} {
		if v, ok := asFloat(record[key]); ok {
			e.angle.WithLabelValues(imei, mercuryID, pair).Set(v)
		}
	}
	for phase, key := range map[string]string{"1": "galileosky_mercury_p1", "2": "galileosky_mercury_p2", "3": "galileosky_mercury_p3", "sum": "galileosky_mercury_ps"} {
		if v, ok := asFloat(record[key]); ok {
			e.activePower.WithLabelValues(imei, mercuryID, phase).Set(v)
		}
	}
	if v, ok := asFloat(record["galileosky_mercury_pa_plus"]); ok {
		e.activeEnergy.WithLabelValues(imei, mercuryID).Set(v)
	}
	for phase, key := range map[string]string{"1": "galileosky_mercury_ks1", "2": "galileosky_mercury_ks2", "3": "galileosky_mercury_ks3", "sum": "galileosky_mercury_kss"} {
		if v, ok := asFloat(record[key]); ok {
			e.powerFactor.WithLabelValues(imei, mercuryID, phase).Set(v)
		}
	}
	for phase, key := range map[string]string{"1": "galileosky_mercury_kg1", "2": "galileosky_mercury_kg2", "3": "galileosky_mercury_kg3"} {
		if v, ok := asFloat(record[key]); ok {
			e.distortion.WithLabelValues(imei, mercuryID, phase).Set(v)
		}
	}

	for i := 0; i < 4; i++ {
		key := fmt.Sprintf("enter%d", i)
		if v, ok := asFloat(record[key]); ok {
			e.enterVoltage.WithLabelValues(imei, mercuryID, fmt.Sprintf("%d", i)).Set(v)
		}
	}
	for i := 0; i < 8; i++ {
		key := fmt.Sprintf("galileosky_temp%d", i)
		if v, ok := asFloat(record[key]); ok {
			e.temperature.WithLabelValues(imei, mercuryID, fmt.Sprintf("%d", i)).Set(v)
		}
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// Serve starts an HTTP server exposing the registry on /metrics at addr.
// It runs until ctx is cancelled, at which point the listener is closed.
func (e *Exporter) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics: listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	log.Infof("metrics: serving /metrics on %s", addr)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics: serve: %w", err)
	}
	return nil
}
