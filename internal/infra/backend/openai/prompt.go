package openai

import domain "github.com/bryanwahyu/vision-assist/internal/domain/analysis"

// systemPrompt selects the analysis instruction for an intent.
// Every prompt demands a single JSON object so the response can be
// passed through as an opaque result tree.
func systemPrompt(intent domain.Intent) string {
	switch intent {
	case domain.IntentObjectDetection:
		return "You are an object detection assistant. List every distinct object " +
			"visible in the image. Respond with one JSON object: " +
			`{"items": [<object names>], "description": <one sentence>}.`
	case domain.IntentTextExtraction:
		return "You are an OCR assistant for visually impaired users. Extract all " +
			"readable text from the image, including medicine labels and dosage " +
			"instructions. Respond with one JSON object: " +
			`{"text": <extracted text>, "warnings": [<safety notes>]}.`
	case domain.IntentEmotionAnalysis:
		return "You analyze facial expressions. Describe the dominant emotion of " +
			"each visible face. Respond with one JSON object: " +
			`{"emotions": [<emotion per face>], "summary": <one sentence>}.`
	default:
		return "You recognize people and faces in images. Respond with one JSON " +
			`object: {"faces": <count>, "description": <one sentence>}.`
	}
}

func userPrompt(intent domain.Intent) string {
	switch intent {
	case domain.IntentObjectDetection:
		return "Detect the objects in this image."
	case domain.IntentTextExtraction:
		return "Read the text in this image."
	case domain.IntentEmotionAnalysis:
		return "Analyze the emotions in this image."
	default:
		return "Describe the people in this image."
	}
}
