package transcribe

import (
	"path/filepath"
	"strings"

	"github.com/audioinsight/audioinsight-back/internal/domain"
)

const standupTranscriptText = `Sarah: Good morning everyone, let's start our daily standup. John, how's your progress on the user authentication feature?

John: Hey team! I finished the login functionality yesterday and started working on the password reset flow. I should have that done by end of day today. No blockers on my end.

Sarah: Great progress! Maria, what about the dashboard redesign?

Maria: I completed the wireframes and got approval from the design team. Today I'm starting the implementation in React. I do have one blocker though - I need the new color palette from the brand team.

Sarah: I'll reach out to marketing today to get those brand guidelines. My update: I finished the API documentation and will be reviewing John's authentication code this afternoon.

John: Perfect! I'll have the PR ready for review by 2 PM.

Sarah: Sounds good. Let's plan to deploy the auth feature to staging tomorrow if the review goes well. Any questions? Alright team, let's make it a productive day!`

const genericTranscriptText = "This is a fallback transcription. The uploaded audio file would be transcribed here using the speech-to-text API in production."

// FallbackTranscript returns the deterministic canned transcript used when
// recognition is impossible. Filenames carrying known demo markers map to
// the standup recording; everything else gets the generic placeholder.
func FallbackTranscript(filename string) domain.Transcript {
	base := strings.ToLower(filepath.Base(filename))
	if strings.Contains(base, "standup") || strings.Contains(base, "demo") {
		return domain.Transcript{
			Text:             standupTranscriptText,
			Duration:         272,
			Language:         "en-US",
			ParticipantCount: 3,
			Confidence:       0.85,
		}
	}
	return domain.Transcript{
		Text:             genericTranscriptText,
		Duration:         300,
		Language:         "en-US",
		ParticipantCount: 2,
		Confidence:       0.80,
	}
}
