package config

type WorkerKeyStruct struct {
	// ExpirySweepLock serializes the overdue-attempt sweep across replicas.
	ExpirySweepLock string
}

var WorkerKey = &WorkerKeyStruct{
	ExpirySweepLock: "worker:expiry_sweep:lock",
}
