package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create artifacts table
			CREATE TABLE artifacts (
				id VARCHAR(64) PRIMARY KEY,
				url TEXT NOT NULL,
				version VARCHAR(255) NOT NULL DEFAULT '',
				kind VARCHAR(64) NOT NULL,
				status VARCHAR(16) NOT NULL CHECK (status IN ('draft', 'active', 'retired')),
				last_modified TIMESTAMP WITH TIME ZONE NOT NULL,
				document JSONB NOT NULL,
				UNIQUE (url, version)
			);

			CREATE INDEX idx_artifacts_url ON artifacts(url);
			CREATE INDEX idx_artifacts_url_status ON artifacts(url, status);
		`,
		2: `
			-- Create assessments table
			CREATE TABLE assessments (
				id VARCHAR(64) PRIMARY KEY,
				artifact_url TEXT NOT NULL,
				artifact_version VARCHAR(255) NOT NULL DEFAULT '',
				info_type VARCHAR(32) NOT NULL,
				date TIMESTAMP WITH TIME ZONE NOT NULL,
				document JSONB NOT NULL
			);

			CREATE INDEX idx_assessments_artifact ON assessments(artifact_url, artifact_version);
		`,
	}
}
