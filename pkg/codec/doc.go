// Package codec imports and exports decision tree documents.
//
// Documents use the shape written by the browser editor:
//
//	{"id": 1, "title": "", "image": "", "question_for_options": "", "options": [...]}
//	{"id": 2, "title": "", "image": "", "link": "https://..."}
//	{"id": 3, "title": "", "type": "internal_link", "target_node_id": "1"}
//
// JSON and YAML are supported. The variant of each node is inferred from the shape
// of the document exactly once, in Decode, and carried as an explicit domain.Kind
// from then on.
package codec
