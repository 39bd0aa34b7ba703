package analytics

import "sort"

// RoutingFeatureColumns is the feature order the router trains and
// predicts with: two label-encoded categoricals followed by three
// standardized numericals.
var RoutingFeatureColumns = []string{
	"content_type",
	"verification_method",
	"task_complexity",
	"expected_response_time",
	"required_confidence",
}

// TaskFeatures describes an incoming verification task for routing.
type TaskFeatures struct {
	TaskID               string             `json:"task_id,omitempty"`
	ContentType          ContentType        `json:"content_type"`
	VerificationMethod   VerificationMethod `json:"verification_method"`
	TaskComplexity       float64            `json:"task_complexity"`
	ExpectedResponseTime float64            `json:"expected_response_time"`
	RequiredConfidence   float64            `json:"required_confidence"`
}

// RoutingExample is one training row: task features plus the worker who
// handled that kind of task best.
type RoutingExample struct {
	Features   TaskFeatures `json:"features"`
	BestWorker string       `json:"best_worker"`
}

// RoutingModel bundles everything prediction needs: the classifier, the
// categorical encoders, the numerical scaler, the worker label space and
// the feature column order. All fitted at training time and serialized as
// one artifact so a load reconstructs identical prediction behavior.
type RoutingModel struct {
	Forest         *RandomForestClassifier `json:"forest"`
	ContentEnc     *LabelEncoder           `json:"content_encoder"`
	MethodEnc      *LabelEncoder           `json:"method_encoder"`
	WorkerEnc      *LabelEncoder           `json:"worker_encoder"`
	Scaler         *StandardScaler         `json:"scaler"`
	FeatureColumns []string                `json:"feature_columns"`
}

// MaxRoutingCandidates is how many ranked workers Predict returns at most.
const MaxRoutingCandidates = 3

// TaskRouter trains and applies the worker-routing classifier.
type TaskRouter struct {
	Seed int64
}

// NewTaskRouter creates a router with the fixed default seed.
func NewTaskRouter() *TaskRouter { return &TaskRouter{Seed: DefaultSeed} }

// Train fits encoders, scaler and classifier on the examples and returns
// the combined model.
func (t *TaskRouter) Train(examples []RoutingExample) (*RoutingModel, error) {
	if len(examples) == 0 {
		return nil, &ValidationError{Field: "training_data", Reason: "no routing examples"}
	}

	contents := make([]string, len(examples))
	methods := make([]string, len(examples))
	workers := make([]string, len(examples))
	numericals := make([][]float64, len(examples))
	for i, ex := range examples {
		contents[i] = string(ex.Features.ContentType)
		methods[i] = string(ex.Features.VerificationMethod)
		workers[i] = ex.BestWorker
		numericals[i] = []float64{
			ex.Features.TaskComplexity,
			ex.Features.ExpectedResponseTime,
			ex.Features.RequiredConfidence,
		}
	}

	contentEnc := NewLabelEncoder("content_type")
	methodEnc := NewLabelEncoder("verification_method")
	workerEnc := NewLabelEncoder("best_worker")
	contentCodes := contentEnc.FitTransform(contents)
	methodCodes := methodEnc.FitTransform(methods)
	labels := workerEnc.FitTransform(workers)

	scaler := &StandardScaler{}
	scaledNum, err := scaler.FitTransform(numericals)
	if err != nil {
		return nil, err
	}

	rows := make([][]float64, len(examples))
	for i := range examples {
		rows[i] = []float64{
			float64(contentCodes[i]),
			float64(methodCodes[i]),
			scaledNum[i][0],
			scaledNum[i][1],
			scaledNum[i][2],
		}
	}

	forest := NewRandomForestClassifier(DefaultMaxDepth, t.Seed)
	if err := forest.Fit(rows, labels, len(workerEnc.Classes)); err != nil {
		return nil, err
	}

	return &RoutingModel{
		Forest:         forest,
		ContentEnc:     contentEnc,
		MethodEnc:      methodEnc,
		WorkerEnc:      workerEnc,
		Scaler:         scaler,
		FeatureColumns: RoutingFeatureColumns,
	}, nil
}

// Predict returns up to MaxRoutingCandidates worker IDs ranked by
// predicted suitability, best first. Ties are broken by class index so
// the ordering is stable. Unseen categorical values fail with
// EncodingError.
func (m *RoutingModel) Predict(task TaskFeatures) ([]string, error) {
	if m.Forest == nil || m.Scaler == nil || m.WorkerEnc == nil {
		return nil, &ArtifactError{Reason: "routing model is missing classifier, scaler or encoders"}
	}

	contentCode, err := m.ContentEnc.Transform(string(task.ContentType))
	if err != nil {
		return nil, err
	}
	methodCode, err := m.MethodEnc.Transform(string(task.VerificationMethod))
	if err != nil {
		return nil, err
	}
	scaledNum, err := m.Scaler.Transform([][]float64{{
		task.TaskComplexity,
		task.ExpectedResponseTime,
		task.RequiredConfidence,
	}})
	if err != nil {
		return nil, err
	}

	row := []float64{
		float64(contentCode),
		float64(methodCode),
		scaledNum[0][0],
		scaledNum[0][1],
		scaledNum[0][2],
	}
	probs, err := m.Forest.PredictProba(row)
	if err != nil {
		return nil, err
	}

	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	// Stable: equal probabilities keep class-index order.
	sort.SliceStable(order, func(a, b int) bool {
		return probs[order[a]] > probs[order[b]]
	})

	limit := MaxRoutingCandidates
	if limit > len(order) {
		limit = len(order)
	}
	ranked := make([]string, 0, limit)
	for _, c := range order[:limit] {
		worker, err := m.WorkerEnc.Inverse(c)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, worker)
	}
	return ranked, nil
}
