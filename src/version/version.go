package version

// Version is the release version of stackops. It doubles as the target
// schema version for the migration state machine: a host whose persisted
// version marker differs from this value needs migrating.
const Version = "1.2.0"
