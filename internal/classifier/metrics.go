package classifier

// Accuracy returns the fraction of matching labels.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return 0
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue))
}

// PrecisionRecallF1 computes the positive-class scores. Undefined ratios are 0.
func PrecisionRecallF1(yTrue, yPred []int) (precision, recall, f1 float64) {
	var tp, fp, fn float64
	for i := range yTrue {
		if i >= len(yPred) {
			break
		}
		switch {
		case yPred[i] == 1 && yTrue[i] == 1:
			tp++
		case yPred[i] == 1:
			fp++
		case yTrue[i] == 1:
			fn++
		}
	}
	if tp+fp > 0 {
		precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		recall = tp / (tp + fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}
