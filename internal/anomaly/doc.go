// Package anomaly trains and applies the anomaly-detection ensemble.
//
// Training has no labelled data, so ground truth is manufactured: a
// deterministic fraction of the historical readings is perturbed several
// standard deviations off-distribution, and three candidate detectors
// (isolation forest, one-class distance boundary, DBSCAN noise) are
// fitted on the perturbed matrix and scored against the injected labels.
// The best F1 wins and is serialized as a versioned JSON artifact that
// the inference side loads without retraining.
package anomaly
