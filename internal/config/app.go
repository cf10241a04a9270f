package config

type AppConfig struct {
	Sim    SimConfig
	Report ReportConfig
	Log    LogConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	simCfg, err := LoadSim()
	if err != nil {
		return AppConfig{}, err
	}
	reportCfg, err := LoadReport()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Sim:    simCfg,
		Report: reportCfg,
		Log:    logCfg,
	}, nil
}
