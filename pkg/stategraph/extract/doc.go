/*
Package extract pulls structured fields out of free-form model output.

Nodes that ask a language model for prose get back text like:

	Key Findings:
	- Adoption doubled since 2022
	- Costs fell by a third
	Conflicting information:
	- Two sources disagree on timelines
	Overall confidence: 85%

An Extractor buckets bullet lines under the most recently seen label:

	ex := extract.Extractor{Labels: []string{"key findings", "conflicting"}}
	sections := ex.Extract(text)
	findings := sections.Items("key findings")

ParseConfidence reads a normalised score from the "confidence" line, and
Classify picks one of a closed set of words from a labelled line:

	score := extract.Confidence(text)             // 0.85
	quality := extract.Classify(text, "evidence quality",
	    []string{"High", "Medium", "Low"}, "Medium")

Everything here is pure: no I/O, no shared state, safe for concurrent use.
*/
package extract
