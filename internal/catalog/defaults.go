package catalog

import (
	"time"

	"github.com/roach88/tagstamp/internal/model"
)

// defaultsCreated is the fixed creation time of the built-in templates, so
// their ids are the same on every install.
var defaultsCreated = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func builtin(name, icon string, tags, ctrl, shift model.TagMap, flags [4]bool) *model.Template {
	t := &model.Template{
		ID:        model.MustTemplateID(defaultsCreated, name, "builtin"),
		Name:      name,
		IconRef:   icon,
		Tags:      tags,
		CtrlTags:  ctrl,
		ShiftTags: shift,
	}
	t.SetFlags(flags)
	return t
}

// Defaults returns a fresh copy of the built-in template set.
func Defaults() []model.Entry {
	var (
		nodes     = [4]bool{}
		ways      = [4]bool{true, false, true, false}
		buildings = [4]bool{false, true, true, true}
	)
	return []model.Entry{
		builtin("Bench", "amenity/bench.svg",
			model.NewTagMap("amenity", "bench"),
			model.NewTagMap("backrest", "yes"),
			model.NewTagMap("backrest", "no"),
			nodes),
		builtin("Waste basket", "amenity/waste_basket.svg",
			model.NewTagMap("amenity", "waste_basket"),
			model.TagMap{}, model.TagMap{},
			nodes),
		model.Separator,
		builtin("Tree", "natural/tree.svg",
			model.NewTagMap("natural", "tree"),
			model.NewTagMap("leaf_type", "broadleaved"),
			model.NewTagMap("leaf_type", "needleleaved"),
			nodes),
		model.Separator,
		builtin("Bus stop", "highway/bus_stop.svg",
			model.NewTagMap("highway", "bus_stop", "public_transport", "platform"),
			model.NewTagMap("bench", "yes", "shelter", "yes"),
			model.NewTagMap("bench", "no", "shelter", "no"),
			nodes),
		builtin("Crossing", "highway/crossing.svg",
			model.NewTagMap("highway", "crossing", "crossing", "marked"),
			model.NewTagMap("tactile_paving", "yes"),
			model.NewTagMap("tactile_paving", "no"),
			nodes),
		builtin("Residential road", "",
			model.NewTagMap("highway", "residential"),
			model.TagMap{}, model.TagMap{},
			ways),
		model.Separator,
		builtin("Building", "building.svg",
			model.NewTagMap("building", "yes"),
			model.TagMap{}, model.TagMap{},
			buildings),
	}
}
