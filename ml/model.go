package ml

// Model is anything that prices an aligned feature vector.
type Model interface {
	Predict(vector []float64) (float64, error)
}
