package senamhi

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(warningsAPI, forecastURL string) *Client {
	return NewClient(warningsAPI, forecastURL, "senamhi-tracker-test", 5*time.Second, slog.Default())
}

func TestFetchAvisos(t *testing.T) {
	t.Run("decodes payload for known department", func(t *testing.T) {
		var requestedPath string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestedPath = r.URL.Path
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"Avisos":[{"id":98765,"numero":"418","titulo":"Aviso de lluvias intensas","descripcion":"...","fechaEmision":"17/11/2025 10:00:00","fechaInicio":"18/11/2025 00:00:00","fechaFin":"19/11/2025 00:00:00","nivel":"2","colorNivel":"NARANJA"}]}`))
		}))
		defer srv.Close()

		client := newTestClient(srv.URL, srv.URL)
		avisos, err := client.FetchAvisos(context.Background(), "LIMA")
		require.NoError(t, err)

		assert.Equal(t, "/15", requestedPath) // LIMA maps to department id 15
		require.Len(t, avisos, 1)
		assert.Equal(t, "418", avisos[0].Numero)
		assert.Equal(t, "NARANJA", avisos[0].ColorNivel)
	})

	t.Run("empty avisos array", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"Avisos":[]}`))
		}))
		defer srv.Close()

		client := newTestClient(srv.URL, srv.URL)
		avisos, err := client.FetchAvisos(context.Background(), "CUSCO")
		require.NoError(t, err)
		assert.Empty(t, avisos)
	})

	t.Run("unknown department", func(t *testing.T) {
		client := newTestClient("http://127.0.0.1:0", "http://127.0.0.1:0")
		_, err := client.FetchAvisos(context.Background(), "NARNIA")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown department")
	})

	t.Run("non-200 response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
		}))
		defer srv.Close()

		client := newTestClient(srv.URL, srv.URL)
		_, err := client.FetchAvisos(context.Background(), "LIMA")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 504")
	})
}

const forecastPageHTML = `
<html><body>
<p>Emisión: martes, 11 de noviembre del 2025</p>
<table>
<tr><td>
  <span class="nameCity">SAN ISIDRO - LIMA</span>
  <div class="row m-3">
    <div class="col-sm-3">martes, 11 de noviembre</div>
    <div class="col-sm-2"><img src="/img/iconos/lluvia_moderada.png"/></div>
    <div class="col-sm-2">22ºC</div>
    <div class="col-sm-2">14ºC</div>
    <div class="col-sm-3">Cielo nublado con lluvia por la tarde</div>
  </div>
  <div class="row m-3">
    <div class="col-sm-3">miércoles, 12 de noviembre</div>
    <div class="col-sm-2"><img src="/img/iconos/nublado.png"/></div>
    <div class="col-sm-2">21ºC</div>
    <div class="col-sm-2">15ºC</div>
    <div class="col-sm-3">Cielo cubierto</div>
  </div>
</td></tr>
<tr><td>
  <span class="nameCity">CUSCO - CUSCO</span>
  <div class="row m-3">
    <div class="col-sm-3">martes, 11 de noviembre</div>
    <div class="col-sm-2"><img src="/img/iconos/soleado.png"/></div>
    <div class="col-sm-2">19ºC</div>
    <div class="col-sm-2">4ºC</div>
    <div class="col-sm-3">Cielo despejado</div>
  </div>
</td></tr>
</table>
</body></html>`

func TestParseForecastPage(t *testing.T) {
	client := newTestClient("http://unused", "http://unused")

	t.Run("all departments", func(t *testing.T) {
		forecasts, err := client.parseForecastPage([]byte(forecastPageHTML), nil)
		require.NoError(t, err)
		require.Len(t, forecasts, 2)

		lima := forecasts[0]
		assert.Equal(t, "SAN ISIDRO", lima.Location)
		assert.Equal(t, "LIMA", lima.Department)
		assert.Equal(t, time.Date(2025, 11, 11, 0, 0, 0, 0, time.Local), lima.IssuedAt)
		require.Len(t, lima.Forecasts, 2)
		assert.Equal(t, 22, lima.Forecasts[0].TempMax)
		assert.Equal(t, 14, lima.Forecasts[0].TempMin)
		assert.Equal(t, "lluvia_moderada", lima.Forecasts[0].WeatherIcon)
		assert.Equal(t, "martes", lima.Forecasts[0].DayName)
		assert.Equal(t, time.Date(2025, 11, 11, 0, 0, 0, 0, time.Local), lima.Forecasts[0].Date)
	})

	t.Run("department filter", func(t *testing.T) {
		forecasts, err := client.parseForecastPage([]byte(forecastPageHTML), []string{"cusco"})
		require.NoError(t, err)
		require.Len(t, forecasts, 1)
		assert.Equal(t, "CUSCO", forecasts[0].Department)
	})

	t.Run("missing issue date", func(t *testing.T) {
		_, err := client.parseForecastPage([]byte("<html><body><table></table></body></html>"), nil)
		require.Error(t, err)
	})
}

func TestParseHelpers(t *testing.T) {
	t.Run("temperature", func(t *testing.T) {
		v, err := parseTemperature(" 22ºC ")
		require.NoError(t, err)
		assert.Equal(t, 22, v)

		v, err = parseTemperature("-3ºC")
		require.NoError(t, err)
		assert.Equal(t, -3, v)

		_, err = parseTemperature("N/A")
		require.Error(t, err)
	})

	t.Run("issued date", func(t *testing.T) {
		at, err := parseIssuedDate("Emisión: martes, 11 de noviembre del 2025")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 11, 11, 0, 0, 0, 0, time.Local), at)

		_, err = parseIssuedDate("sin fecha")
		require.Error(t, err)
	})

	t.Run("location split", func(t *testing.T) {
		loc, dept, err := splitLocationName("MADRE DE DIOS - MADRE DE DIOS")
		require.NoError(t, err)
		assert.Equal(t, "MADRE DE DIOS", loc)
		assert.Equal(t, "MADRE DE DIOS", dept)

		_, _, err = splitLocationName("no separator here")
		require.Error(t, err)
	})

	t.Run("icon type", func(t *testing.T) {
		assert.Equal(t, "lluvia_moderada", extractIconType("/img/iconos/lluvia_moderada.png"))
		assert.Equal(t, "", extractIconType(""))
	})
}
