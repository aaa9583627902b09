// Package schema defines the record types shared by the progress engine,
// the stores, and the wire transport.
//
// # Overview
//
// Three collections make up the remote data set:
//
//	sheets                {id, name, description, total_questions}
//	questions             {id, title, difficulty, url, topic, sheet_id}
//	user_question_status  {id, user_id, question_id, status, last_updated}
//
// Sheets and questions are immutable once loaded. A StatusRecord is the
// only mutable entity: one per (user, question), last write wins.
//
// # Statuses
//
// The status enumeration is fixed:
//   - todo - not attempted yet (the default when no record exists)
//   - redo - attempted, needs another go
//   - revision - solved, worth revisiting
//   - completed - done
//
// # Catalog Files
//
// Sheets and their questions can be seeded from a YAML catalog:
//
//	sheets:
//	  - id: blind-75
//	    name: Blind 75
//	    description: The classic list
//	    questions:
//	      - id: two-sum
//	        title: Two Sum
//	        difficulty: Easy
//	        url: https://leetcode.com/problems/two-sum/
//	        topic: Arrays
//
// Use ReadCatalogFile to parse and validate one, and Catalog.Flatten to
// turn it into records ready for a store.
package schema
