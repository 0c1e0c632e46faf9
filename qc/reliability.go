package qc

import (
	"log"
	"math"

	"github.com/studymetab/metaboqc/matrix"
)

// CV is the coefficient of variation across replicate groups: each group
// contributes its within-group standard deviation over its within-group
// mean, and the groups are averaged. Groups with fewer than two
// observations carry no dispersion information and are skipped. A constant
// group contributes 0 even when its mean is 0. NaN is returned when no
// group is usable.
func CV(groups [][]float64) float64 {
	sum, n := 0.0, 0
	for _, g := range groups {
		obs := finite(g)
		if len(obs) < 2 {
			continue
		}
		mean, sd, _ := meanStdDev(obs)
		var cv float64
		switch {
		case sd == 0:
			cv = 0
		case mean == 0:
			cv = math.Inf(1)
		default:
			cv = sd / math.Abs(mean)
		}
		sum += cv
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// ICC is the one-way random-effects intraclass correlation across replicate
// groups: between-group variance over total variance, estimated from the
// one-way ANOVA mean squares with the unbalanced-design group size
// adjustment. NaN is returned when the estimate is undefined (fewer than
// two usable groups, no within-group replication, or zero total variance).
func ICC(groups [][]float64) float64 {
	obs := make([][]float64, 0, len(groups))
	total, n := 0.0, 0
	for _, g := range groups {
		fin := finite(g)
		if len(fin) == 0 {
			continue
		}
		obs = append(obs, fin)
		for _, v := range fin {
			total += v
			n++
		}
	}
	g := len(obs)
	if g < 2 || n <= g {
		return math.NaN()
	}
	grand := total / float64(n)

	ssb, ssw := 0.0, 0.0
	sumSqSizes := 0.0
	for _, group := range obs {
		gm := 0.0
		for _, v := range group {
			gm += v
		}
		gm /= float64(len(group))
		ssb += float64(len(group)) * (gm - grand) * (gm - grand)
		for _, v := range group {
			ssw += (v - gm) * (v - gm)
		}
		sumSqSizes += float64(len(group) * len(group))
	}

	msb := ssb / float64(g-1)
	msw := ssw / float64(n-g)
	// Average group size, adjusted for unbalanced groups.
	k := (float64(n) - sumSqSizes/float64(n)) / float64(g-1)

	den := msb + (k-1)*msw
	if den == 0 {
		return math.NaN()
	}
	return (msb - msw) / den
}

// FilterUnreliable drops metabolites whose replicate measurements are too
// noisy: CV above cvCutoff, or ICC below iccCutoff. Replicates are the rows
// sharing a participant ID within a cohort.
//
// Policy choices, stated explicitly:
//   - A metabolite with no replicate coverage at all (no group has two
//     non-missing runs) passes through unfiltered rather than being
//     silently dropped.
//   - A metabolite with replicate coverage but an undefined ICC (zero total
//     variance across replicates) is dropped conservatively.
func FilterUnreliable(d *matrix.Dataset, cvCutoff, iccCutoff float64) (*matrix.Dataset, error) {
	groups, members := d.ReplicateGroups()
	if len(groups) == 0 {
		log.Println("=== No replicate samples present; skipping reliability filter ===")
		return d.Clone(), nil
	}

	log.Println("=== Removing metabolites with CV >", cvCutoff, "or ICC <", iccCutoff,
		"across", len(groups), "replicate groups ===")

	drop := []string{}
	for _, name := range d.MetaboliteNames() {
		values := make([][]float64, 0, len(groups))
		covered := false
		for _, g := range groups {
			runs := members[g]
			vals := make([]float64, 0, len(runs))
			for _, key := range runs {
				vals = append(vals, d.Get(key, name))
			}
			if len(finite(vals)) >= 2 {
				covered = true
			}
			values = append(values, vals)
		}

		if !covered {
			continue
		}

		cv := CV(values)
		icc := ICC(values)

		switch {
		case !math.IsNaN(cv) && cv > cvCutoff:
			drop = append(drop, name)
			log.Printf("Dropping metabolite %s (CV %.3f)\n", name, cv)
		case math.IsNaN(icc):
			drop = append(drop, name)
			log.Printf("Dropping metabolite %s (ICC undefined)\n", name)
		case icc < iccCutoff:
			drop = append(drop, name)
			log.Printf("Dropping metabolite %s (ICC %.3f)\n", name, icc)
		}
	}
	log.Println("Dropped", len(drop), "of", d.NMetabolites(), "metabolites")

	return d.DropMetabolites(drop), nil
}
