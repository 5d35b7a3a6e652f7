package domain

type UploadStage string

const (
	StageCompressing     UploadStage = "compressing"
	StageUploading       UploadStage = "uploading"
	StageUpdatingProfile UploadStage = "updating_profile"
	StageCleaningUp      UploadStage = "cleaning_up"
	StageCompleted       UploadStage = "completed"
)

var stageOrder = map[UploadStage]int{
	StageCompressing:     0,
	StageUploading:       1,
	StageUpdatingProfile: 2,
	StageCleaningUp:      3,
	StageCompleted:       4,
}

// Order returns the position of the stage in the pipeline, or -1 if unknown.
func (s UploadStage) Order() int {
	if o, ok := stageOrder[s]; ok {
		return o
	}
	return -1
}

type ProgressEvent struct {
	Stage       UploadStage `json:"stage"`
	Progress    int         `json:"progress"`
	Message     string      `json:"message"`
	CurrentFile string      `json:"current_file,omitempty"`
}

type ProgressListener func(ProgressEvent)
