package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				is_active BOOLEAN NOT NULL DEFAULT false,
				trigger_name VARCHAR(255) NOT NULL,
				conditions JSONB,
				actions JSONB NOT NULL DEFAULT '[]',
				owner_id VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflows_dispatch ON workflows(trigger_name) WHERE is_active AND deleted_at IS NULL;
		`,
		2: `
			CREATE TABLE workflow_executions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				trigger_payload JSONB,
				status VARCHAR(20) NOT NULL CHECK (status IN ('RUNNING', 'SUCCESS', 'FAILED', 'SKIPPED')),
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				duration_ms BIGINT NOT NULL DEFAULT 0,
				result JSONB,
				error_message TEXT,
				CHECK ((status = 'RUNNING') = (completed_at IS NULL))
			);

			CREATE INDEX idx_workflow_executions_history ON workflow_executions(workflow_id, started_at DESC);
		`,
		3: `
			CREATE TABLE activities (
				id VARCHAR(255) PRIMARY KEY,
				type VARCHAR(100) NOT NULL,
				workflow_id VARCHAR(255),
				execution_id VARCHAR(255),
				user_id VARCHAR(255),
				description TEXT NOT NULL DEFAULT '',
				metadata JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_activities_workflow ON activities(workflow_id, created_at DESC);
		`,
	}
}
