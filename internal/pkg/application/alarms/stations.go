package alarms

import (
	"io"

	yaml "gopkg.in/yaml.v2"

	"github.com/RemiAsselin42/radio-alarm-app/pkg/types"
)

type StationsConfig struct {
	Stations []types.RadioStation `yaml:"stations"`
}

// LoadStationsConfig reads the station preset list. An empty document
// yields the built-in presets.
func LoadStationsConfig(r io.Reader) ([]types.RadioStation, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	cfg := StationsConfig{}
	err = yaml.Unmarshal(b, &cfg)
	if err != nil {
		return nil, err
	}

	if len(cfg.Stations) == 0 {
		return DefaultStations(), nil
	}

	return cfg.Stations, nil
}

func DefaultStations() []types.RadioStation {
	return []types.RadioStation{
		{ID: "1", Name: "NRJ", StreamURL: "https://scdn.nrjaudio.fm/fr/30001/mp3_128.mp3?origine=fluxradios"},
		{ID: "2", Name: "Skyrock", StreamURL: "https://icecast.skyrock.net/s/natio_mp3_128k"},
		{ID: "3", Name: "RTL", StreamURL: "https://streaming.radio.rtl.fr/rtl-1-44-128"},
		{ID: "4", Name: "Europe 1", StreamURL: "https://europe1.lmn.fm/europe1.mp3"},
		{ID: "5", Name: "France Inter", StreamURL: "https://icecast.radiofrance.fr/franceinter-midfi.mp3"},
		{ID: "6", Name: "RFM", StreamURL: "https://rfm-live-mp3-128.scdn.arkena.com/rfm.mp3"},
		{ID: "7", Name: "Nostalgie", StreamURL: "https://scdn.nrjaudio.fm/fr/30601/mp3_128.mp3"},
		{ID: "8", Name: "Fun Radio", StreamURL: "https://icecast.funradio.fr/fun-1-44-128"},
		{ID: "9", Name: "Radio Paradise - Main Mix", StreamURL: "https://stream.radioparadise.com/aac-320"},
		{ID: "10", Name: "Radio Paradise - Mellow", StreamURL: "https://stream.radioparadise.com/mellow-320"},
		{ID: "11", Name: "Radio Paradise - Rock", StreamURL: "https://stream.radioparadise.com/rock-320"},
		{ID: "12", Name: "Radio Paradise - World/Etc", StreamURL: "https://stream.radioparadise.com/world-etc-320"},
	}
}
