package anomaly

// Metrics are the standard binary-classification scores of one detector
// against the injected ground-truth labels.
type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Evaluate scores per-row anomaly predictions against labels (1 marks an
// injected anomaly). Undefined ratios collapse to 0.
func Evaluate(predicted []bool, labels []int) Metrics {
	var tp, tn, fp, fn float64
	for i, p := range predicted {
		anomalous := labels[i] == 1
		switch {
		case p && anomalous:
			tp++
		case p && !anomalous:
			fp++
		case !p && anomalous:
			fn++
		default:
			tn++
		}
	}

	m := Metrics{}
	if total := tp + tn + fp + fn; total > 0 {
		m.Accuracy = (tp + tn) / total
	}
	if tp+fp > 0 {
		m.Precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		m.Recall = tp / (tp + fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}
