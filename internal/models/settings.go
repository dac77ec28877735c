package models

// DefaultSamplerOrder is used when no valid sampler order is configured
var DefaultSamplerOrder = []int{6, 3, 2, 5, 0, 1, 4}

// GenerationSettings holds the user-tunable sampler settings. A nil field is
// unset and resolves to its default.
type GenerationSettings struct {
	RepPen                 *float64 `json:"rep_pen,omitempty"`
	RepPenRange            *int     `json:"rep_pen_range,omitempty"`
	Temperature            *float64 `json:"temperature,omitempty"`
	SamplerOrder           []int    `json:"sampler_order,omitempty"`
	TopK                   *int     `json:"top_k,omitempty"`
	TopP                   *float64 `json:"top_p,omitempty"`
	TopA                   *float64 `json:"top_a,omitempty"`
	Tfs                    *float64 `json:"tfs,omitempty"`
	Typical                *float64 `json:"typical,omitempty"`
	Singleline             *bool    `json:"singleline,omitempty"`
	SamplerFullDeterminism *bool    `json:"sampler_full_determinism,omitempty"`
	MaxLength              *int     `json:"max_length,omitempty"`
	MinLength              *int     `json:"min_length,omitempty"`
	MaxContextLength       *int     `json:"max_context_length,omitempty"`
	MaxTokens              *int     `json:"max_tokens,omitempty"`
}

// ResolvedSettings is GenerationSettings with every default applied
type ResolvedSettings struct {
	RepPen                 float64 `json:"rep_pen"`
	RepPenRange            int     `json:"rep_pen_range"`
	Temperature            float64 `json:"temperature"`
	SamplerOrder           []int   `json:"sampler_order"`
	TopK                   int     `json:"top_k"`
	TopP                   float64 `json:"top_p"`
	TopA                   float64 `json:"top_a"`
	Tfs                    float64 `json:"tfs"`
	Typical                float64 `json:"typical"`
	Singleline             bool    `json:"singleline"`
	SamplerFullDeterminism bool    `json:"sampler_full_determinism"`
	MaxLength              int     `json:"max_length"`
	MinLength              int     `json:"min_length"`
	MaxContextLength       int     `json:"max_context_length"`
	MaxTokens              int     `json:"max_tokens"`
}

// DefaultSettings returns the resolved defaults
func DefaultSettings() ResolvedSettings {
	return GenerationSettings{}.Resolve()
}

// Resolve applies defaults. Zero is a real value for top_k, top_a, tfs and
// min_length; for the other numeric fields zero falls back to the default.
func (s GenerationSettings) Resolve() ResolvedSettings {
	return ResolvedSettings{
		RepPen:                 nonZero(s.RepPen, 1.0),
		RepPenRange:            nonZero(s.RepPenRange, 512),
		Temperature:            nonZero(s.Temperature, 0.9),
		SamplerOrder:           resolveSamplerOrder(s.SamplerOrder),
		TopK:                   orDefault(s.TopK, 0),
		TopP:                   nonZero(s.TopP, 0.9),
		TopA:                   orDefault(s.TopA, 0),
		Tfs:                    orDefault(s.Tfs, 0),
		Typical:                nonZero(s.Typical, 0.9),
		Singleline:             orDefault(s.Singleline, true),
		SamplerFullDeterminism: orDefault(s.SamplerFullDeterminism, false),
		MaxLength:              nonZero(s.MaxLength, 350),
		MinLength:              orDefault(s.MinLength, 0),
		MaxContextLength:       nonZero(s.MaxContextLength, 2048),
		MaxTokens:              nonZero(s.MaxTokens, 350),
	}
}

func orDefault[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}

func nonZero[T int | float64](v *T, def T) T {
	if v == nil || *v == 0 {
		return def
	}
	return *v
}

// resolveSamplerOrder accepts only a permutation of 0..6
func resolveSamplerOrder(order []int) []int {
	if len(order) != len(DefaultSamplerOrder) {
		return append([]int(nil), DefaultSamplerOrder...)
	}
	seen := make(map[int]bool, len(order))
	for _, v := range order {
		if v < 0 || v >= len(DefaultSamplerOrder) || seen[v] {
			return append([]int(nil), DefaultSamplerOrder...)
		}
		seen[v] = true
	}
	return append([]int(nil), order...)
}
