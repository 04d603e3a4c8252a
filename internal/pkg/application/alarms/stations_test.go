package alarms

import (
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestLoadStationsConfig(t *testing.T) {
	is := is.New(t)

	stations, err := LoadStationsConfig(strings.NewReader(stationsYaml))
	is.NoErr(err)
	is.Equal(len(stations), 2)
	is.Equal(stations[0].Name, "FIP")
	is.Equal(stations[1].StreamURL, "https://icecast.radiofrance.fr/franceculture-midfi.mp3")
}

func TestLoadStationsConfigFallsBackToPresets(t *testing.T) {
	is := is.New(t)

	stations, err := LoadStationsConfig(strings.NewReader(""))
	is.NoErr(err)
	is.Equal(len(stations), 12)
	is.Equal(stations[0].Name, "NRJ")
}

func TestLoadStationsConfigRejectsMalformedYaml(t *testing.T) {
	is := is.New(t)

	_, err := LoadStationsConfig(strings.NewReader("stations: {not: [a, list"))
	is.True(err != nil)
}

const stationsYaml string = `
stations:
  - id: fip
    name: FIP
    streamUrl: https://icecast.radiofrance.fr/fip-midfi.mp3
  - id: culture
    name: France Culture
    streamUrl: https://icecast.radiofrance.fr/franceculture-midfi.mp3
`
