package sora

import (
	"slices"
	"strconv"
	"strings"
)

// ModelPro is the only model allowed to use the extended size catalog.
const ModelPro = "sora-2-pro"

var (
	models         = []string{"sora-2", ModelPro}
	secondsChoices = []int{4, 8, 12}

	// Sizes every model accepts.
	baseSizes = []string{
		"1280x720",
		"1920x1080",
		"720x1280",
		"1080x1920",
		"1024x1024",
	}
	// Portrait and landscape sizes exclusive to the pro model.
	proSizes = []string{
		"1024x1792",
		"1792x1024",
	}
)

// Models lists the generation models the tool knows size catalogs for.
func Models() []string {
	return slices.Clone(models)
}

// SecondsChoices lists the clip durations the API accepts.
func SecondsChoices() []int {
	return slices.Clone(secondsChoices)
}

// ValidSeconds reports whether the API accepts the duration.
func ValidSeconds(seconds int) bool {
	return slices.Contains(secondsChoices, seconds)
}

// SizesForModel returns the resolutions the model accepts. Unknown models
// get the base catalog so a newer model name still produces a usable list.
func SizesForModel(model string) []string {
	sizes := slices.Clone(baseSizes)
	if strings.TrimSpace(model) == ModelPro {
		sizes = append(sizes, proSizes...)
	}
	return sizes
}

func secondsChoiceList() string {
	parts := make([]string, 0, len(secondsChoices))
	for _, s := range secondsChoices {
		parts = append(parts, strconv.Itoa(s))
	}
	return strings.Join(parts, ", ")
}
