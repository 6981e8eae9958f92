package llm

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const scoreProperty = `{"type": "number", "minimum": 0, "maximum": 10}`

var tailorSchemaJSON = `{
  "type": "object",
  "required": ["summary", "match_score"],
  "properties": {
    "summary": {"type": "string"},
    "experience": {"type": "array", "items": {"type": "string"}},
    "skills": {"type": "array", "items": {"type": "string"}},
    "keywords": {"type": "array", "items": {"type": "string"}},
    "match_score": {"type": "number", "minimum": 0, "maximum": 100},
    "suggestions": {"type": "array", "items": {"type": "string"}},
    "optimized_text": {"type": "string"}
  }
}`

var questionsSchemaJSON = `{
  "type": "object",
  "required": ["questions"],
  "properties": {
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["question"],
        "properties": {
          "question": {"type": "string", "minLength": 1},
          "category": {"type": "string"},
          "difficulty": {"type": "string"},
          "expected_keywords": {"type": "array", "items": {"type": "string"}},
          "model_answer": {"type": "string"}
        }
      }
    }
  }
}`

var evaluationSchemaJSON = `{
  "type": "object",
  "required": ["content_score", "overall_score"],
  "properties": {
    "content_score": ` + scoreProperty + `,
    "keyword_match": ` + scoreProperty + `,
    "clarity": ` + scoreProperty + `,
    "relevance": ` + scoreProperty + `,
    "overall_score": ` + scoreProperty + `,
    "feedback": {"type": "string"},
    "suggestions": {"type": "array", "items": {"type": "string"}},
    "ai_feedback": {"type": "string"}
  }
}`

var nonVerbalSchemaJSON = `{
  "type": "object",
  "required": ["confidence", "overall_score"],
  "properties": {
    "eye_contact": ` + scoreProperty + `,
    "posture": ` + scoreProperty + `,
    "gestures": ` + scoreProperty + `,
    "facial_expressions": ` + scoreProperty + `,
    "confidence": ` + scoreProperty + `,
    "overall_score": ` + scoreProperty + `,
    "feedback": {"type": "string"}
  }
}`

type schemas struct {
	tailor     *gojsonschema.Schema
	questions  *gojsonschema.Schema
	evaluation *gojsonschema.Schema
	nonVerbal  *gojsonschema.Schema
}

func compileSchemas() (schemas, error) {
	var out schemas
	var err error
	if out.tailor, err = compile("tailor", tailorSchemaJSON); err != nil {
		return schemas{}, err
	}
	if out.questions, err = compile("questions", questionsSchemaJSON); err != nil {
		return schemas{}, err
	}
	if out.evaluation, err = compile("evaluation", evaluationSchemaJSON); err != nil {
		return schemas{}, err
	}
	if out.nonVerbal, err = compile("non-verbal", nonVerbalSchemaJSON); err != nil {
		return schemas{}, err
	}
	return out, nil
}

func compile(name, source string) (*gojsonschema.Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", name, err)
	}
	return s, nil
}

// SchemaError lists every field of a gateway response that broke its schema.
type SchemaError struct {
	Operation string
	Fields    []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s response does not match schema: %s", e.Operation, strings.Join(e.Fields, "; "))
}

func validate(schema *gojsonschema.Schema, operation string, raw []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%s response is not json: %w", operation, err)
	}
	if result.Valid() {
		return nil
	}
	fields := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		fields = append(fields, field+": "+desc.Description())
	}
	return &SchemaError{Operation: operation, Fields: fields}
}
