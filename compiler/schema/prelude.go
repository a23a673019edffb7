package schema

const placeholderQueryName = "Query"

// placeholderQuery keeps the document valid when the input schema declares
// no query root of its own; generated query fields replace it downstream.
const placeholderQuery = `type Query {
  _service: String
}`

// directivePrelude declares the custom directive vocabulary so that the
// parser can validate usage sites and argument shapes.
const directivePrelude = `directive @model on OBJECT
directive @key(name: String, fields: [String!]!) on OBJECT
directive @auth(rules: [AuthRule!]!) on OBJECT | FIELD_DEFINITION
directive @connection(name: String, fields: [String!]) on FIELD_DEFINITION
directive @function(name: String!) on FIELD_DEFINITION
directive @searchable on OBJECT
directive @predictions(actions: [PredictionsAction!]!) on FIELD_DEFINITION

input AuthRule {
  allow: AuthStrategy!
  provider: AuthProvider
  operations: [ModelOperation!]
  groups: [String!]
  ownerField: String
  identityClaim: String
}

enum AuthStrategy {
  public
  owner
  groups
  private
}

enum AuthProvider {
  apiKey
  oidc
  userPools
  iam
}

enum ModelOperation {
  create
  read
  update
  delete
}

enum PredictionsAction {
  identifyText
  identifyLabels
  translateText
  convertTextToSpeech
}`
