package config

type WorkerKeyStruct struct {
	PersistProctoringQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistProctoringQueue: "persist_proctoring_queue",
}
