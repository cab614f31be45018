package config

type WorkerKeyStruct struct {
	PersistChangeLogQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistChangeLogQueue: "persist_question_change_log_queue",
}
