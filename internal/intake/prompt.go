package intake

import (
	"fmt"
	"strings"
)

// SystemPrompt asks the model for the nested patient_info/procedures shape
// the normalizer understands.
const SystemPrompt = `You are an intelligent workers compensation intake processor. Your task is to extract key information from unstructured documents.

IMPORTANT: Always use the EXACT format specified below. Do not add additional fields or change the structure.

Return your response in this JSON structure:
{
  "patient_info": {
    "patient_name": {"value": "John Smith", "source": "email body", "confidence": "high"},
    "patient_address": {"value": "123 Main St, Anytown, CA 94001", "source": "attachment 2", "confidence": "medium"},
    "claim_number": {"value": "WC-12345-67", "source": "email body", "confidence": "high"},
    "adjustor_info": {"value": "Mark Johnson, Liberty Mutual, mark.johnson@example.com, 555-123-4567", "source": "email signature", "confidence": "high"},
    "employer_name": {"value": "ABC Company", "source": "attachment 1", "confidence": "high"},
    "employer_phone": {"value": "555-123-4567", "source": "attachment 1", "confidence": "medium"},
    "employer_address": {"value": "456 Business Ave, Anytown, CA 94001", "source": "attachment 1", "confidence": "medium"},
    "employer_email": {"value": "hr@abccompany.com", "source": "attachment 1", "confidence": "medium"}
  },
  "procedures": [
    {
      "service_description": {"value": "MRI of left shoulder", "source": "email body", "confidence": "high"},
      "cpt_code": {"value": "73221", "source": "attachment 1", "confidence": "high"},
      "icd10_code": {"value": "M75.102", "source": "attachment 1", "confidence": "high"},
      "location_request": {"value": "Preferred location: North County Imaging", "source": "email body", "confidence": "medium"},
      "referring_provider": {"value": "Dr. Jane Rodriguez (NPI: 1234567890)", "source": "attachment 1", "confidence": "high"},
      "additional_considerations": {"value": "Patient has history of rotator cuff injury", "source": "attachment 1", "confidence": "medium"}
    }
  ]
}

If a patient has multiple procedures, include each procedure as a separate object in the procedures array.
If any information is completely missing, use null for the value and "not found" for the source.
Do not include any additional fields or change the structure.`

const userPreamble = "Please analyze these workers compensation documents and extract the key information as specified in your instructions, including all procedure line items:\n\n"

// emailIndex picks the document that carries the referral e-mail: the first
// .eml or file named like an e-mail, else the first .txt that reads like one.
// Returns -1 when there is none.
func emailIndex(docs []Document) int {
	for i, d := range docs {
		if d.Ext == ".eml" || strings.Contains(strings.ToLower(d.Name), "email") {
			return i
		}
	}
	for i, d := range docs {
		if d.Ext != ".txt" {
			continue
		}
		lower := strings.ToLower(d.Content)
		if strings.Contains(lower, "from:") || strings.Contains(lower, "subject:") {
			return i
		}
	}
	return -1
}

// BuildPrompt lays out an order's extracted text as the e-mail section
// followed by numbered attachments.
func BuildPrompt(order *Order) string {
	var b strings.Builder
	b.WriteString(userPreamble)
	fmt.Fprintf(&b, "ORDER ID: %s\n\n", order.ID)

	email := emailIndex(order.Documents)
	if email >= 0 {
		b.WriteString("===== EMAIL CONTENT =====\n\n")
		b.WriteString(order.Documents[email].Content)
		b.WriteString("\n\n")
	}

	n := 0
	for i, d := range order.Documents {
		if i == email {
			continue
		}
		n++
		fmt.Fprintf(&b, "===== ATTACHMENT %d: %s =====\n", n, d.Name)
		fmt.Fprintf(&b, "File type: %s\n\n", d.Ext)
		b.WriteString(d.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}
