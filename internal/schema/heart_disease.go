package schema

import "heartetl/pkg/records"

func rng(min, max float64) *Range { return &Range{Min: min, Max: max} }

// HeartDisease returns the policy table for the UCI Heart Disease dataset
// (repository id 45). Ranges and category sets follow the dataset's
// documented value domains; age, sex, and target must never be null in the
// destination table.
func HeartDisease() TableSpec {
	return TableSpec{
		Table:    "heart_disease",
		Source:   "uci_ml_repo",
		NATokens: []string{"", "?", "na", "n/a", "nan", "null"},
		Renames:  map[string]string{"num": "target"},
		Columns: []ColumnSpec{
			{Name: "age", Kind: KindInteger, Range: rng(0, 120), Critical: true,
				Description: "age in years"},
			{Name: "sex", Kind: KindBool, Critical: true,
				Description: "sex (true = male, false = female)"},
			{Name: "cp", Kind: KindCategorical, Allowed: []int64{1, 2, 3, 4},
				Description: "chest pain type"},
			{Name: "trestbps", Kind: KindInteger, Range: rng(0, 300),
				Description: "resting blood pressure in mm Hg"},
			{Name: "chol", Kind: KindInteger, Range: rng(0, 600),
				Description: "serum cholesterol in mg/dl"},
			{Name: "fbs", Kind: KindBool,
				Description: "fasting blood sugar > 120 mg/dl"},
			{Name: "restecg", Kind: KindCategorical, Allowed: []int64{0, 1, 2},
				Description: "resting electrocardiographic results"},
			{Name: "thalach", Kind: KindInteger, Range: rng(0, 250),
				Description: "maximum heart rate achieved"},
			{Name: "exang", Kind: KindBool,
				Description: "exercise induced angina"},
			{Name: "oldpeak", Kind: KindReal, Range: rng(0, 10),
				Description: "ST depression induced by exercise relative to rest"},
			{Name: "slope", Kind: KindInteger, Range: rng(1, 3),
				Description: "slope of the peak exercise ST segment"},
			{Name: "ca", Kind: KindInteger, Range: rng(0, 3),
				Description: "number of major vessels colored by fluoroscopy"},
			{Name: "thal", Kind: KindInteger, Range: rng(3, 7),
				Description: "thalassemia (3 normal, 6 fixed defect, 7 reversible defect)"},
			{Name: "target", Kind: KindCategorical, Allowed: []int64{0, 1, 2, 3, 4}, Critical: true,
				Description: "diagnosis of heart disease (0 = none, 1-4 = severity)"},
		},
		Derived: []DerivedColumn{
			{
				Name:        "has_disease",
				Kind:        KindInteger,
				Description: "1 when target > 0",
				Fn: func(r records.Record) any {
					if t, ok := r["target"].(int64); ok && t > 0 {
						return int64(1)
					}
					return int64(0)
				},
			},
		},
	}
}
