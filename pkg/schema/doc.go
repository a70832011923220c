/*
Package schema defines the relational schema a dataset is validated against
and reads it from YAML.

A schema file lists tables in the order they are validated:

	tables:
	  - name: person
	    required_columns: [person_id, gender_concept_id]
	    datatypes:
	      person_id: integer
	      person_source_value: {type: string, max_length: 50}
	      birth_datetime: datetime64[ns]
	    primary_key: person_id
	  - name: condition_occurrence
	    required_columns: [condition_occurrence_id, person_id]
	    foreign_keys:
	      - column: person_id
	        references: person.person_id

Type keywords are the canonical kinds (integer, float, string, bool, datetime)
or one of their aliases; pandas dtype names such as int64 and datetime64[ns]
are accepted.

Parsing:

	s, err := schema.NewParser().Parse("config/omop-schema-v5.4.yaml")
	if err != nil {
		// err is a *schema.Error or *schema.ErrorList; the run cannot start.
		return err
	}

Every structural problem in a file is collected before Parse returns, each
with a source location, the surrounding lines and, for misspelled type
keywords, a suggestion.

Lint reports inconsistencies that do not prevent validation, such as a foreign
key that references a table the schema never declares.
*/
package schema
