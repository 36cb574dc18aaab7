package db

// JSON columns are stored as TEXT and timestamps as unix seconds so the same
// queries run on both drivers.

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS schemes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  department TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS subjects (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  scheme_id INTEGER NOT NULL REFERENCES schemes(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  code TEXT NOT NULL DEFAULT '',
  credits INTEGER,
  semester INTEGER,
  created_at INTEGER NOT NULL,
  UNIQUE (scheme_id, name)
);

CREATE TABLE IF NOT EXISTS question_banks (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  scheme_id INTEGER NOT NULL REFERENCES schemes(id) ON DELETE CASCADE,
  subject_id INTEGER NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
  module INTEGER NOT NULL,
  file_name TEXT NOT NULL,
  file_path TEXT NOT NULL,
  source_tag TEXT NOT NULL UNIQUE,
  question_count INTEGER NOT NULL DEFAULT 0,
  uploaded_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  scheme_id INTEGER NOT NULL REFERENCES schemes(id) ON DELETE CASCADE,
  subject_id INTEGER NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
  q_type TEXT NOT NULL,
  text TEXT NOT NULL,
  marks INTEGER,
  co_tags TEXT NOT NULL DEFAULT '[]',
  rbt_level TEXT,
  subparts TEXT,
  answer TEXT,
  module INTEGER,
  status TEXT NOT NULL DEFAULT 'DRAFT',
  parse_confidence REAL NOT NULL DEFAULT 0,
  source_file TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_questions_scheme_subject ON questions(scheme_id, subject_id);
CREATE INDEX IF NOT EXISTS idx_questions_source_file ON questions(source_file);

CREATE TABLE IF NOT EXISTS paper_drafts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  scheme_id INTEGER NOT NULL REFERENCES schemes(id) ON DELETE CASCADE,
  subject_id INTEGER NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
  title TEXT NOT NULL,
  header_json TEXT NOT NULL DEFAULT '{}',
  co_table_json TEXT,
  rbt_table_json TEXT,
  rows_json TEXT NOT NULL DEFAULT '[]',
  status TEXT NOT NULL DEFAULT 'DRAFT',
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_paper_drafts_scheme_subject ON paper_drafts(scheme_id, subject_id, created_at);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS schemes (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  department TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS subjects (
  id BIGSERIAL PRIMARY KEY,
  scheme_id BIGINT NOT NULL REFERENCES schemes(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  code TEXT NOT NULL DEFAULT '',
  credits INTEGER,
  semester INTEGER,
  created_at BIGINT NOT NULL,
  UNIQUE (scheme_id, name)
);

CREATE TABLE IF NOT EXISTS question_banks (
  id BIGSERIAL PRIMARY KEY,
  scheme_id BIGINT NOT NULL REFERENCES schemes(id) ON DELETE CASCADE,
  subject_id BIGINT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
  module INTEGER NOT NULL,
  file_name TEXT NOT NULL,
  file_path TEXT NOT NULL,
  source_tag TEXT NOT NULL UNIQUE,
  question_count INTEGER NOT NULL DEFAULT 0,
  uploaded_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  id BIGSERIAL PRIMARY KEY,
  scheme_id BIGINT NOT NULL REFERENCES schemes(id) ON DELETE CASCADE,
  subject_id BIGINT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
  q_type TEXT NOT NULL,
  text TEXT NOT NULL,
  marks INTEGER,
  co_tags TEXT NOT NULL DEFAULT '[]',
  rbt_level TEXT,
  subparts TEXT,
  answer TEXT,
  module INTEGER,
  status TEXT NOT NULL DEFAULT 'DRAFT',
  parse_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
  source_file TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_questions_scheme_subject ON questions(scheme_id, subject_id);
CREATE INDEX IF NOT EXISTS idx_questions_source_file ON questions(source_file);

CREATE TABLE IF NOT EXISTS paper_drafts (
  id BIGSERIAL PRIMARY KEY,
  scheme_id BIGINT NOT NULL REFERENCES schemes(id) ON DELETE CASCADE,
  subject_id BIGINT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
  title TEXT NOT NULL,
  header_json TEXT NOT NULL DEFAULT '{}',
  co_table_json TEXT,
  rbt_table_json TEXT,
  rows_json TEXT NOT NULL DEFAULT '[]',
  status TEXT NOT NULL DEFAULT 'DRAFT',
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_paper_drafts_scheme_subject ON paper_drafts(scheme_id, subject_id, created_at);
`
