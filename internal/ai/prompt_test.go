package ai

import (
	"strings"
	"testing"

	"github.com/shinyyama/fragrance-assistant/internal/model"
)

func TestBuildAssistantPrompt(t *testing.T) {
	prefs := model.DefaultPreferences()
	prefs.Intensity = model.IntensityStrong
	prefs.FavoriteNotes = []string{"샌달우드", "바닐라"}

	got := BuildAssistantPrompt(prefs)
	if !strings.Contains(got, intensityPrompts[model.IntensityStrong]) {
		t.Fatalf("missing intensity guidance")
	}
	if !strings.Contains(got, "샌달우드, 바닐라") {
		t.Fatalf("missing notes: %s", got)
	}

	prefs = model.Preferences{Intensity: "unknown"}
	got = BuildAssistantPrompt(prefs)
	if !strings.Contains(got, intensityPrompts[model.IntensityMedium]) || strings.Contains(got, "고객 정보") {
		t.Fatalf("unexpected prompt: %s", got)
	}
}
