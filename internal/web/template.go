package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/chamber-controller/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"onOff": func(on bool) string {
		if on {
			return "ON"
		}
		return "OFF"
	},
	"actionName": status.ActionName,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Chamber Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
input { width: 6em; font-family: monospace; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Chamber Controller</h1>

<h2>Readings</h2>
<table>
{{with .Controller.LastSample}}<tr><th>CO2</th><td id="co2">{{.CO2}} ppm</td></tr>
<tr><th>Humidity</th><td id="rh">{{printf "%.1f" .RH}} %</td></tr>
<tr><th>Temperature</th><td id="temp">{{printf "%.1f" .Temp}} &deg;C</td></tr>
<tr><th>Outside</th><td id="temp-outer">{{printf "%.1f" .TempOuter}} &deg;C</td></tr>
{{else}}<tr><th>Sensors</th><td>waiting for first sample</td></tr>
{{end}}{{with .Controller.LastReading}}<tr><th>Last median</th><td>{{.CO2}} ppm, {{printf "%.1f" .RH}} %, {{printf "%.1f" .Temp}} &deg;C</td></tr>{{end}}
</table>

<h2>Setpoints</h2>
<form id="setpoints">
<table>
<tr><th>CO2 (ppm)</th><td><input name="co2_ppm" type="number" min="400" max="10000" value="{{.Controller.Setpoints.CO2}}"></td></tr>
<tr><th>Humidity (%)</th><td><input name="rh_percent" type="number" step="0.1" min="82" max="96" value="{{printf "%.1f" .Controller.Setpoints.RH}}"></td></tr>
<tr><th>Temperature (&deg;C)</th><td><input name="temp_c" type="number" step="0.1" min="18" max="32" value="{{printf "%.1f" .Controller.Setpoints.Temp}}"></td></tr>
</table>
<button type="submit">Save</button>
</form>

<h2>Outputs</h2>
<table>
<tr><th>Mixing</th><td id="out-mixing" class="{{if .Controller.Outputs.Mixing}}on{{else}}off{{end}}">{{onOff .Controller.Outputs.Mixing}}</td></tr>
<tr><th>Fresh air</th><td id="out-fresh-air" class="{{if .Controller.Outputs.FreshAir}}on{{else}}off{{end}}">{{onOff .Controller.Outputs.FreshAir}}</td></tr>
<tr><th>Fogger</th><td id="out-fogger" class="{{if .Controller.Outputs.Fogger}}on{{else}}off{{end}}">{{onOff .Controller.Outputs.Fogger}}</td></tr>
<tr><th>Heater</th><td id="out-heater" class="{{if .Controller.Outputs.Heater}}on{{else}}off{{end}}">{{onOff .Controller.Outputs.Heater}}</td></tr>
<tr><th>Action</th><td id="action">{{actionName .Controller.Action}}{{if .Controller.ActionStage}} ({{.Controller.ActionStage}}){{end}}</td></tr>
</table>

<h2>Storage</h2>
<table>
<tr><th>Device</th><td>{{if .Controller.Storage.Available}}available{{else}}volatile{{end}}</td></tr>
<tr><th>Cursor</th><td>{{.Controller.Storage.Cursor}} / {{.Controller.Storage.Slots}}</td></tr>
<tr><th>Writes</th><td>{{.Controller.Storage.Writes}} ({{.Controller.Storage.Failures}} failed)</td></tr>
<tr><th>Counter</th><td id="counter">{{if .Controller.Values}}{{index .Controller.Values 0}}{{end}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Run</th><td>{{.RunID}}</td></tr>
<tr><th>Speedup</th><td>{{.Config.Speedup}}x</td></tr>
<tr><th>Sample interval</th><td>{{.Config.SampleIntervalMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/api/telemetry">Telemetry</a> | <a href="/metrics">Metrics</a></p>
<script>
(function() {
  var form = document.getElementById("setpoints");
  form.addEventListener("submit", function(ev) {
    ev.preventDefault();
    var body = {
      co2_ppm: parseInt(form.co2_ppm.value, 10),
      rh_percent: parseFloat(form.rh_percent.value),
      temp_c: parseFloat(form.temp_c.value)
    };
    fetch("/api/setpoints", { method: "PUT", body: JSON.stringify(body) })
      .then(function(r) { return r.json(); })
      .then(function(sp) {
        form.co2_ppm.value = sp.co2_ppm;
        form.rh_percent.value = sp.rh_percent.toFixed(1);
        form.temp_c.value = sp.temp_c.toFixed(1);
      });
  });

  function setOut(id, on) {
    var el = document.getElementById(id);
    el.textContent = on ? "ON" : "OFF";
    el.className = on ? "on" : "off";
  }

  setInterval(function() {
    fetch("/api/telemetry").then(function(r) { return r.json(); }).then(function(t) {
      var n = t.telemetry.co2.length;
      if (n > 0 && document.getElementById("co2")) {
        document.getElementById("co2").textContent = t.telemetry.co2[n-1] + " ppm";
        document.getElementById("rh").textContent = t.telemetry.rh[n-1].toFixed(1) + " %";
        document.getElementById("temp").textContent = t.telemetry.temp[n-1].toFixed(1) + " °C";
        document.getElementById("temp-outer").textContent = t.telemetry.temp_outer[n-1].toFixed(1) + " °C";
      }
      setOut("out-mixing", t.outputs.mixing);
      setOut("out-fresh-air", t.outputs.fresh_air);
      setOut("out-fogger", t.outputs.fogger);
      setOut("out-heater", t.outputs.heater);
      document.getElementById("action").textContent = t.action + (t.stage !== "IDLE" ? " (" + t.stage + ")" : "");
    }).catch(function() {});
  }, 5000);
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
