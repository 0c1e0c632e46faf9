// metaboqc cleans clinical metabolomics exports: it loads one platform's
// files, runs the configured sequence of quality-control and normalization
// stages, and writes a single cleaned participant-by-metabolite matrix.
package main

import (
	"flag"
	"log"
	"path/filepath"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/kelseyhightower/envconfig"

	"github.com/studymetab/metaboqc/matrix"
	"github.com/studymetab/metaboqc/platform"
	"github.com/studymetab/metaboqc/qc"
)

func main() {
	// Defaults come from the struct tags and may be overridden through
	// METABOQC_* environment variables; flags override both.
	var cfg qc.Config
	if err := envconfig.Process("metaboqc", &cfg); err != nil {
		log.Fatalln(pfx.Err(err))
	}

	var dir, platformName, out string
	var fastingFile, medsFile string

	flag.StringVar(&dir, "dir", "", "Directory holding the platform's export files")
	flag.StringVar(&platformName, "platform", "", "Platform to process ("+platform.PlatformNames()+")")
	flag.StringVar(&out, "out", "cleaned.csv", "Path of the cleaned output matrix")
	flag.StringVar(&fastingFile, "fasting", "", "Optional CSV with participant fasting status")
	flag.StringVar(&medsFile, "meds", "", "Optional CSV with participant medication classes (required with -residualize)")

	flag.Float64Var(&cfg.MissingMetaboliteCutoff, "missing-metabolite-cutoff", cfg.MissingMetaboliteCutoff, "Drop metabolites with a higher missing proportion")
	flag.Float64Var(&cfg.MissingParticipantCutoff, "missing-participant-cutoff", cfg.MissingParticipantCutoff, "Drop participants with a higher missing proportion")
	flag.Float64Var(&cfg.CVCutoff, "cv-cutoff", cfg.CVCutoff, "Drop metabolites with a higher replicate coefficient of variation")
	flag.Float64Var(&cfg.ICCCutoff, "icc-cutoff", cfg.ICCCutoff, "Drop metabolites with a lower intraclass correlation")
	flag.Float64Var(&cfg.OutlierAlpha, "outlier-alpha", cfg.OutlierAlpha, "Chi-squared tail probability for multivariate outlier removal")
	flag.Float64Var(&cfg.WinsorizeSD, "winsorize-sd", cfg.WinsorizeSD, "Winsorization boundary in standard deviations")

	flag.BoolVar(&cfg.Log2, "log2", cfg.Log2, "Apply the log2 transform")
	flag.BoolVar(&cfg.ZScore, "zscore", cfg.ZScore, "Apply z-score standardization (after log2 when both are set)")
	flag.BoolVar(&cfg.Winsorize, "winsorize", cfg.Winsorize, "Winsorize extreme values")
	flag.BoolVar(&cfg.RemoveOutliers, "remove-outliers", cfg.RemoveOutliers, "Remove multivariate outliers by Mahalanobis distance")
	flag.BoolVar(&cfg.Residualize, "residualize", cfg.Residualize, "Residualize against medication-class covariates")
	flag.BoolVar(&cfg.Merge, "merge", cfg.Merge, "Merge all cohorts into one output matrix")
	flag.BoolVar(&cfg.ImputeLOD, "impute-lod", cfg.ImputeLOD, "Impute censored cells at half the limit of detection")
	flag.BoolVar(&cfg.CorrectPlates, "correct-plates", cfg.CorrectPlates, "Apply cross-plate correction from QC-pool samples")
	flag.BoolVar(&cfg.FilterFasting, "filter-fasting", cfg.FilterFasting, "Drop non-fasting participants (requires -fasting)")

	flag.Parse()

	if dir == "" {
		log.Fatalln("Please provide -dir")
	}
	if platformName == "" {
		log.Fatalln("Please provide -platform")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalln(err)
	}
	if cfg.Residualize && medsFile == "" {
		log.Fatalln("-residualize requires -meds")
	}
	if cfg.FilterFasting && fastingFile == "" {
		log.Fatalln("-filter-fasting requires -fasting")
	}

	log.Println("Launched metaboqc for platform", platformName)

	if err := runAll(dir, platformName, out, fastingFile, medsFile, cfg); err != nil {
		log.Fatalln(pfx.Err(err))
	}
}

func runAll(dir, platformName, out, fastingFile, medsFile string, cfg qc.Config) error {
	cohorts, err := platform.Load(dir, platformName)
	if err != nil {
		return err
	}

	var fasting map[string]int
	if fastingFile != "" {
		if fasting, err = platform.ReadFasting(fastingFile); err != nil {
			return err
		}
		log.Println("Loaded fasting status for", len(fasting), "participants")
	}

	var meds *platform.Meds
	if medsFile != "" {
		if meds, err = platform.ReadMeds(medsFile); err != nil {
			return err
		}
		log.Println("Loaded", len(meds.Classes), "medication classes for", len(meds.ByID), "participants")
	}

	cleaned := make([]*matrix.Dataset, 0, len(cohorts))
	for _, cohort := range cohorts {
		log.Println("--- Cohort", cohort.Cohort, "---")

		d := cohort.Data
		platform.ApplyCovariates(d, fasting, meds)

		if d, err = runCohort(d, cohort, cfg); err != nil {
			return err
		}
		cleaned = append(cleaned, d)
	}

	if cfg.Merge || len(cleaned) == 1 {
		merged, err := qc.Merge(cleaned...)
		if err != nil {
			return err
		}
		log.Println("Writing", out)
		return platform.Write(merged, out)
	}

	for i, d := range cleaned {
		path := cohortPath(out, cohorts[i].Cohort)
		log.Println("Writing", path)
		if err := platform.Write(d, path); err != nil {
			return err
		}
	}
	return nil
}

func runCohort(d *matrix.Dataset, cohort platform.CohortData, cfg qc.Config) (*matrix.Dataset, error) {
	var err error

	if d, err = qc.FilterMissing(d, cfg.MissingMetaboliteCutoff, cfg.MissingParticipantCutoff); err != nil {
		return nil, err
	}
	if d, err = qc.FilterUnreliable(d, cfg.CVCutoff, cfg.ICCCutoff); err != nil {
		return nil, err
	}
	if cfg.CorrectPlates {
		if d, err = qc.CorrectPlates(d, cohort.Pools); err != nil {
			return nil, err
		}
	}
	if d, err = qc.ConsolidateReplicates(d); err != nil {
		return nil, err
	}
	if cfg.FilterFasting {
		if d, err = qc.FilterNonFasting(d); err != nil {
			return nil, err
		}
	}
	if cfg.ImputeLOD {
		if d, err = qc.ImputeLOD(d, cohort.LODs); err != nil {
			return nil, err
		}
	}
	if cfg.Log2 {
		if d, err = qc.Log2(d); err != nil {
			return nil, err
		}
	}
	if cfg.ZScore {
		if d, err = qc.ZScore(d); err != nil {
			return nil, err
		}
	}
	if cfg.Winsorize {
		if d, err = qc.Winsorize(d, cfg.WinsorizeSD); err != nil {
			return nil, err
		}
	}
	if cfg.RemoveOutliers {
		if d, err = qc.RemoveMultivariateOutliers(d, cfg.OutlierAlpha); err != nil {
			return nil, err
		}
	}
	if cfg.Residualize {
		if d, err = qc.Residualize(d); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// cohortPath inserts the cohort label before the output extension, so
// -out cleaned.csv becomes cleaned.ADNI1.csv.
func cohortPath(out, cohort string) string {
	ext := filepath.Ext(out)
	return strings.TrimSuffix(out, ext) + "." + cohort + ext
}
