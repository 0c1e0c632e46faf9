package qc

import "fmt"

// Config is the immutable parameter bundle threaded through the pipeline.
// Defaults come from the struct tags (overridable through the environment
// via envconfig, then by CLI flags); nothing mutates a Config during a run.
type Config struct {
	MissingMetaboliteCutoff  float64 `envconfig:"missing_metabolite_cutoff" default:"0.2"`
	MissingParticipantCutoff float64 `envconfig:"missing_participant_cutoff" default:"0.2"`
	CVCutoff                 float64 `envconfig:"cv_cutoff" default:"0.2"`
	ICCCutoff                float64 `envconfig:"icc_cutoff" default:"0.65"`

	// OutlierAlpha is the chi-squared tail probability used as the
	// multivariate outlier threshold.
	OutlierAlpha float64 `envconfig:"outlier_alpha" default:"0.01"`

	// WinsorizeSD is how many standard deviations from the column mean a
	// value may sit before it is capped.
	WinsorizeSD float64 `envconfig:"winsorize_sd" default:"3"`

	Log2           bool `envconfig:"log2" default:"true"`
	ZScore         bool `envconfig:"zscore" default:"true"`
	Winsorize      bool `envconfig:"winsorize" default:"true"`
	RemoveOutliers bool `envconfig:"remove_outliers" default:"false"`
	Residualize    bool `envconfig:"residualize" default:"false"`
	Merge          bool `envconfig:"merge" default:"true"`

	ImputeLOD     bool `envconfig:"impute_lod" default:"true"`
	CorrectPlates bool `envconfig:"correct_plates" default:"true"`
	FilterFasting bool `envconfig:"filter_fasting" default:"false"`
}

// Validate rejects cutoffs outside their documented ranges.
func (c Config) Validate() error {
	inUnit := func(name string, v float64) error {
		if v < 0 || v > 1 {
			return fmt.Errorf("config: %s must be in [0,1], got %g", name, v)
		}
		return nil
	}

	if err := inUnit("missing_metabolite_cutoff", c.MissingMetaboliteCutoff); err != nil {
		return err
	}
	if err := inUnit("missing_participant_cutoff", c.MissingParticipantCutoff); err != nil {
		return err
	}
	if err := inUnit("icc_cutoff", c.ICCCutoff); err != nil {
		return err
	}
	if c.CVCutoff < 0 {
		return fmt.Errorf("config: cv_cutoff must be >= 0, got %g", c.CVCutoff)
	}
	if c.OutlierAlpha <= 0 || c.OutlierAlpha >= 1 {
		return fmt.Errorf("config: outlier_alpha must be in (0,1), got %g", c.OutlierAlpha)
	}
	if c.WinsorizeSD <= 0 {
		return fmt.Errorf("config: winsorize_sd must be > 0, got %g", c.WinsorizeSD)
	}

	return nil
}
