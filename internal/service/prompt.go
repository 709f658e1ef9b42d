package service

import (
	"fmt"
	"strings"

	"leadbot/internal/model"
)

// AssemblePrompt appends the per-turn conversation state and guidance to the domain's base prompt
func AssemblePrompt(basePrompt string, guidance *model.Guidance, prefs model.PreferenceState, extracted []string, canSearch bool) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n\n## 🎯 CONTEXTUAL INTELLIGENCE\n\n")
	b.WriteString("### 📊 Current Conversation State:\n\n")

	if !prefs.IsEmpty() {
		b.WriteString("**Information Already Collected:**\n")
		if prefs.HasLocation() {
			fmt.Fprintf(&b, "- 📍 Location: %s\n", *prefs.Location)
		}
		if prefs.HasBudget() {
			fmt.Fprintf(&b, "- 💰 Budget: %s\n", model.FormatMoney(*prefs.MaxPrice))
		}
		if prefs.MinBedrooms != nil && *prefs.MinBedrooms > 0 {
			fmt.Fprintf(&b, "- 🛏️ Bedrooms: %d+\n", *prefs.MinBedrooms)
		}
		if prefs.MinBathrooms != nil && *prefs.MinBathrooms > 0 {
			fmt.Fprintf(&b, "- 🛁 Bathrooms: %d+\n", *prefs.MinBathrooms)
		}
		if prefs.PropertyType != nil && *prefs.PropertyType != "" {
			fmt.Fprintf(&b, "- 🏠 Type: %s\n", *prefs.PropertyType)
		}
		if len(prefs.MustHaveFeatures) > 0 {
			fmt.Fprintf(&b, "- ✨ Must-have features: %s\n", strings.Join(prefs.MustHaveFeatures, ", "))
		}
		b.WriteString("\n")
	}

	if len(extracted) > 0 {
		fmt.Fprintf(&b, "**Just Extracted from Last Message:** %s\n\n", strings.Join(extracted, ", "))
	}

	if canSearch {
		b.WriteString("🚀 **READY TO SEARCH!** You have location + budget. You can trigger a property search NOW by outputting the <property_search> format!\n\n")
	} else if missing := prefs.MissingCriticalFields(); len(missing) > 0 {
		fmt.Fprintf(&b, "❌ **Cannot search yet.** Missing: %s\n", strings.Join(missing, ", "))
		b.WriteString("Ask for these naturally in your next response!\n\n")
	}

	if guidance != nil {
		if len(guidance.DetectedProblems) > 0 {
			b.WriteString("### 💡 Similar Conversations:\n")
			for _, problem := range guidance.DetectedProblems {
				fmt.Fprintf(&b, "- %s\n", problem)
			}
			b.WriteString("\n")
		}
		if guidance.SuggestedApproach != "" {
			fmt.Fprintf(&b, "### 🎯 Recommended Approach:\n%s\n\n", guidance.SuggestedApproach)
		}
	}

	b.WriteString("**REMEMBER:** Don't ask for information you already have! Reference it naturally instead.\n")
	b.WriteString("**REMEMBER:** If you can search now, do it! Don't keep asking unnecessary questions.\n")

	return b.String()
}
